package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"chronos-quant/internal/journal"
	"chronos-quant/internal/logger"
	"chronos-quant/internal/pipeline"
	"chronos-quant/internal/scheduler"
	"chronos-quant/internal/trace"
	"chronos-quant/internal/types"
)

type rootFlags struct {
	configPath string
	pretty     bool
}

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err := newRootCmd().ExecuteContext(context.Background())
	_ = trace.Shutdown(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "quant",
		Short:        "Indicator-driven decisions for NSE/BSE symbols",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "config.yaml", "path to the YAML config")
	root.PersistentFlags().BoolVar(&flags.pretty, "pretty", false, "pretty-print JSON output")

	root.AddCommand(
		newEvaluateCmd(flags),
		newChartCmd(flags),
		newWatchCmd(flags),
		newEODCmd(flags),
		newHistoryCmd(flags),
	)
	return root
}

func writeJSON(w io.Writer, v any, prettyOut bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if prettyOut {
		b = pretty.Pretty(b)
	} else {
		b = append(b, '\n')
	}
	_, err = w.Write(b)
	return err
}

func newEvaluateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate SYMBOL...",
		Short: "Evaluate symbols once and print a decision per symbol",
		Example: `  quant evaluate INFY TCS
  quant evaluate RELIANCE --pretty`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var failed []string
			for _, sym := range args {
				res, err := a.engine.Step(ctx, sym)
				if err != nil {
					failed = append(failed, sym)
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", strings.ToUpper(sym), err)
					continue
				}
				if err := writeJSON(cmd.OutOrStdout(), res, flags.pretty); err != nil {
					return err
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("evaluation failed for %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

// chartPayload is the annotated history for one symbol.
type chartPayload struct {
	Symbol         string         `json:"symbol"`
	Schema         string         `json:"schema"`
	Rows           pipeline.Table `json:"rows"`
	LatestPrice    float64        `json:"latest_price"`
	PredictedPrice float64        `json:"predicted_price"`
	Confidence     float64        `json:"confidence"`
	Action         string         `json:"action"`
	Rule           string         `json:"rule"`
}

func newChartCmd(flags *rootFlags) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "chart SYMBOL",
		Short: "Print bars annotated with every indicator plus the prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			an, err := a.engine.Analyze(ctx, args[0])
			if err != nil {
				return err
			}
			rows := an.Table
			if last > 0 && last < len(rows) {
				rows = rows[len(rows)-last:]
			}
			return writeJSON(cmd.OutOrStdout(), chartPayload{
				Symbol:         strings.ToUpper(args[0]),
				Schema:         an.Schema,
				Rows:           rows,
				LatestPrice:    an.Last.Close,
				PredictedPrice: an.Record.PredictedPrice,
				Confidence:     an.Record.Confidence,
				Action:         an.Record.Action,
				Rule:           an.Verdict.Rule,
			}, flags.pretty)
		},
	}
	cmd.Flags().IntVar(&last, "last", 0, "only print the last N rows (0 prints all)")
	return cmd
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Evaluate the universe on a cron schedule and write the EOD summary after close",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			compressOldLogs(ctx, a.journal, a.cfg.Journal.RetentionDays)

			var srv *http.Server
			if addr := a.cfg.Watch.MetricsAddr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", a.metrics.Handler())
				srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.ErrorWithErr(ctx, "Metrics server failed", err, "addr", addr)
					}
				}()
				logger.Info(ctx, "Metrics endpoint listening", "addr", addr)
			}

			out := cmd.OutOrStdout()
			s := scheduler.NewScheduler(ctx, a.engine, a.eod, a.cfg.Universe)
			s.OnResult = func(r *types.StepResult) {
				if err := writeJSON(out, r, flags.pretty); err != nil {
					logger.Warn(ctx, "Failed to print result", "error", err)
				}
			}
			if err := s.RegisterAll(a.cfg.Watch.Cron, a.cfg.Watch.EODCron); err != nil {
				return err
			}
			s.Start()
			if runNow {
				s.RunStepsNow()
			}

			<-ctx.Done()
			logger.Info(context.Background(), "Shutting down...")
			s.Stop()
			if p, err := s.FlushEOD(); err == nil && p != "" {
				logger.Info(context.Background(), "EOD CSV written", "csv_path", p)
			}
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "evaluate the universe once at startup")
	return cmd
}

func newEODCmd(flags *rootFlags) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "eod",
		Short: "Write the end-of-day CSV summary of the decision journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var p string
			if date == "" {
				p, err = a.eod.SummarizeToday()
			} else {
				day, perr := time.ParseInLocation("2006-01-02", date, journal.IST)
				if perr != nil {
					return fmt.Errorf("invalid --date %q: %w", date, perr)
				}
				p, err = a.eod.SummarizeDay(day)
			}
			if err != nil {
				return err
			}
			if p == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no decisions recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "IST day to summarize as YYYY-MM-DD (default today)")
	return cmd
}

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Print recent recorded decisions for a symbol, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.history == nil {
				return errors.New("journal.sqlite_path is not configured")
			}
			rows, err := a.history.Recent(cmd.Context(), strings.ToUpper(args[0]), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows, flags.pretty)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum decisions to print")
	return cmd
}
