package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chronos-quant/internal/pipeline"
	"chronos-quant/internal/types"
)

type fakeEngine struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeEngine) Step(_ context.Context, symbol string) (*types.StepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)
	if f.fail[symbol] {
		return nil, errors.New("no data")
	}
	return &types.StepResult{Symbol: symbol}, nil
}

func (f *fakeEngine) Analyze(context.Context, string) (*pipeline.Analysis, error) {
	return nil, errors.New("not used")
}

type fakeEOD struct {
	should  bool
	written int
}

func (f *fakeEOD) SummarizeDay(time.Time) (string, error) { return f.SummarizeToday() }

func (f *fakeEOD) SummarizeToday() (string, error) {
	f.written++
	return "logs/eod/today.csv", nil
}

func (f *fakeEOD) ShouldRunNow() (bool, string) { return f.should, "logs/eod/today.csv" }

func TestRunStepsNowContinuesPastFailures(t *testing.T) {
	eng := &fakeEngine{fail: map[string]bool{"TCS": true}}
	s := NewScheduler(context.Background(), eng, nil, []string{"INFY", "TCS", "SBIN"})
	var got []string
	s.OnResult = func(r *types.StepResult) { got = append(got, r.Symbol) }

	s.RunStepsNow()

	if len(eng.calls) != 3 {
		t.Errorf("Expected every symbol evaluated, got %v", eng.calls)
	}
	if len(got) != 2 || got[0] != "INFY" || got[1] != "SBIN" {
		t.Errorf("Expected results for INFY and SBIN, got %v", got)
	}
}

func TestRunStepsNowStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := &fakeEngine{}
	NewScheduler(ctx, eng, nil, []string{"INFY"}).RunStepsNow()
	if len(eng.calls) != 0 {
		t.Errorf("Expected no evaluations after cancel, got %v", eng.calls)
	}
}

func TestEODCheck(t *testing.T) {
	eod := &fakeEOD{}
	s := NewScheduler(context.Background(), &fakeEngine{}, eod, nil)

	s.eodCheck()
	if eod.written != 0 {
		t.Error("Expected no summary before the cutoff")
	}
	eod.should = true
	s.eodCheck()
	if eod.written != 1 {
		t.Errorf("Expected one summary, got %d", eod.written)
	}
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeEngine{}, &fakeEOD{}, []string{"INFY"})
	if err := s.RegisterAll("0 */15 * * * *", "0 */5 * * * *"); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Cron.Entries()); n != 2 {
		t.Errorf("Expected 2 entries, got %d", n)
	}

	bad := NewScheduler(context.Background(), &fakeEngine{}, nil, nil)
	if err := bad.RegisterAll("not a cron", ""); err == nil {
		t.Error("Expected error for invalid cron spec")
	}
}

func TestCronRunsSteps(t *testing.T) {
	eng := &fakeEngine{}
	s := NewScheduler(context.Background(), eng, nil, []string{"INFY"})
	if err := s.RegisterAll("* * * * * *", ""); err != nil {
		t.Fatal(err)
	}
	s.Start()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		eng.mu.Lock()
		n := len(eng.calls)
		eng.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if len(eng.calls) == 0 {
		t.Error("Expected the cron task to run within 3s")
	}
}

func TestFlushEODOnlyAfterClose(t *testing.T) {
	eod := &fakeEOD{}
	s := NewScheduler(context.Background(), &fakeEngine{}, eod, nil)

	if p, err := s.FlushEOD(); err != nil || p != "" || eod.written != 0 {
		t.Errorf("Expected no mid-session flush, got %q, %v, %d writes", p, err, eod.written)
	}
	eod.should = true
	if p, err := s.FlushEOD(); err != nil || p == "" || eod.written != 1 {
		t.Errorf("Expected one post-close flush, got %q, %v, %d writes", p, err, eod.written)
	}
}
