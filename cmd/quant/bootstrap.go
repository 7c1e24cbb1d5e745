package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"chronos-quant/internal/commentary"
	"chronos-quant/internal/commentary/commentaryobs"
	"chronos-quant/internal/engine"
	"chronos-quant/internal/engine/engineobs"
	"chronos-quant/internal/eod"
	"chronos-quant/internal/eod/eodobs"
	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/journal"
	"chronos-quant/internal/logger"
	"chronos-quant/internal/marketdata"
	"chronos-quant/internal/marketdata/marketobs"
	"chronos-quant/internal/metrics"
	"chronos-quant/internal/recorder"
	"chronos-quant/internal/store"
	"chronos-quant/internal/trace"
)

// app is everything a command needs, wired from the config.
type app struct {
	cfg      *store.Config
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	engine   interfaces.Engine
	eod      interfaces.EodSummarizer
	journal  *journal.Journal
	history  *recorder.SQLiteRecorder
	closers  []func() error
}

// initializeSystem initializes the environment, logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeSource builds the candle source with observability
func initializeSource(ctx context.Context, cfg *store.Config, m *metrics.Metrics) (interfaces.CandleSource, func() error, error) {
	src, closeFn, err := marketdata.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "Candle source ready",
		"data_source", cfg.DataSource,
		"interval", cfg.Interval,
		"period", cfg.Period,
		"cache", cfg.Cache.Backend,
	)

	return marketobs.Wrap(src, m), closeFn, nil
}

// initializeCommentator builds the commentator for the configured capability
func initializeCommentator(ctx context.Context, cfg *store.Config, m *metrics.Metrics) (interfaces.Commentator, error) {
	c, err := commentary.New(cfg)
	if err != nil {
		return nil, err
	}
	if c.Capability() == string(commentary.None) {
		logger.Info(ctx, "Commentary disabled")
	} else {
		logger.Info(ctx, "Commentary enabled", "capability", c.Capability(), "provider", cfg.Commentary.Provider)
	}
	return commentaryobs.Wrap(c, m), nil
}

// initializeSinks opens the journal and, when configured, the SQLite history
func initializeSinks(ctx context.Context, cfg *store.Config) (*journal.Journal, *recorder.SQLiteRecorder, interfaces.DecisionSink, error) {
	j := journal.New(cfg.Journal.Dir)
	sinks := recorder.Multi{j}

	var hist *recorder.SQLiteRecorder
	if cfg.Journal.SQLitePath != "" {
		r, err := recorder.NewSQLiteRecorder(cfg.Journal.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open decision history: %w", err)
		}
		hist = r
		sinks = append(sinks, r)
		logger.Info(ctx, "Decision history enabled", "path", cfg.Journal.SQLitePath)
	}
	return j, hist, sinks, nil
}

// initializeEngine initializes and returns the engine with observability
func initializeEngine(cfg *store.Config, src interfaces.CandleSource, c interfaces.Commentator, sink interfaces.DecisionSink, m *metrics.Metrics) interfaces.Engine {
	eng := engine.New(cfg, src, c, sink)
	return engineobs.Wrap(eng, m)
}

// initializeEOD wraps the journal summarizer with observability
func initializeEOD(j *journal.Journal, cfg *store.Config, m *metrics.Metrics) interfaces.EodSummarizer {
	return eodobs.Wrap(eod.NewSummarizer(j, cfg.Journal.Dir), m)
}

// compressOldLogs gzips journal days past the retention window
func compressOldLogs(ctx context.Context, j *journal.Journal, days int) {
	if days <= 0 {
		return
	}
	if err := j.CompressOlder(days); err != nil {
		logger.Warn(ctx, "Failed to compress old journal files", "error", err)
	}
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.metrics = metrics.NewMetrics(a.registry)

	src, closeSrc, err := initializeSource(ctx, cfg, a.metrics)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeSrc)

	c, err := initializeCommentator(ctx, cfg, a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	j, hist, sink, err := initializeSinks(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.journal, a.history = j, hist
	a.closers = append(a.closers, sink.Close)

	a.engine = initializeEngine(cfg, src, c, sink, a.metrics)
	a.eod = initializeEOD(j, cfg, a.metrics)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
