// Package scheduler runs evaluations and the end-of-day summary on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/journal"
	"chronos-quant/internal/logger"
	"chronos-quant/internal/types"
)

// Scheduler manages the watch loop's cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   interfaces.Engine
	EOD      interfaces.EodSummarizer
	Universe []string
	// OnResult is called for every successful evaluation.
	OnResult func(*types.StepResult)
	Ctx      context.Context
}

func NewScheduler(ctx context.Context, eng interfaces.Engine, eod interfaces.EodSummarizer, universe []string) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(journal.IST),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		Engine:   eng,
		EOD:      eod,
		Universe: universe,
		Ctx:      ctx,
	}
}

// RegisterAll registers the evaluation and end-of-day tasks.
func (s *Scheduler) RegisterAll(stepCron, eodCron string) error {
	if _, err := s.Cron.AddFunc(stepCron, s.RunStepsNow); err != nil {
		return fmt.Errorf("register step task: %w", err)
	}
	if s.EOD != nil {
		if _, err := s.Cron.AddFunc(eodCron, s.eodCheck); err != nil {
			return fmt.Errorf("register eod task: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info(s.Ctx, "Scheduler started", "entries", len(s.Cron.Entries()), "universe", s.Universe)
}

// Stop waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info(s.Ctx, "Scheduler stopped")
}

// RunStepsNow evaluates the universe once. A failing symbol does not stop
// the others.
func (s *Scheduler) RunStepsNow() {
	for _, sym := range s.Universe {
		if s.Ctx.Err() != nil {
			return
		}
		res, err := s.Engine.Step(s.Ctx, sym)
		if err != nil {
			continue
		}
		if s.OnResult != nil {
			s.OnResult(res)
		}
	}
}

func (s *Scheduler) eodCheck() {
	ok, path := s.EOD.ShouldRunNow()
	if !ok {
		return
	}
	p, err := s.EOD.SummarizeToday()
	if err != nil {
		logger.ErrorWithErr(s.Ctx, "EOD summary failed", err, "csv_path", path)
		return
	}
	if p != "" {
		logger.Info(s.Ctx, "EOD CSV written", "csv_path", p)
	}
}

// FlushEOD writes today's summary on shutdown if the session has closed and
// the post-close CSV is still missing. It writes nothing mid-session.
func (s *Scheduler) FlushEOD() (string, error) {
	if s.EOD == nil {
		return "", nil
	}
	if ok, _ := s.EOD.ShouldRunNow(); !ok {
		return "", nil
	}
	return s.EOD.SummarizeToday()
}
