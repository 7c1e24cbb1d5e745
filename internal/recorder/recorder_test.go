package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"chronos-quant/internal/types"
)

func result(id, symbol, action string) *types.StepResult {
	rsi := 71.2
	return &types.StepResult{
		ID:         id,
		Symbol:     symbol,
		Decision:   types.DecisionRecord{Action: action, Direction: "DOWN", PredictedPrice: 99.5, Confidence: 66},
		Rule:       "overbought_below_sma",
		Price:      100,
		Time:       1736150400,
		Bars:       60,
		Source:     "yahoo",
		Indicators: map[string]*float64{"rsi": &rsi, "sma": nil},
	}
}

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "decisions.db"))
	if err != nil {
		t.Fatalf("Expected no error opening sqlite, got %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	base := time.Unix(1736150400, 0)

	for i, id := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		r.now = func() time.Time { return ts }
		if err := r.Record(ctx, result(id, "INFY", "SELL")); err != nil {
			t.Fatal(err)
		}
	}
	withComment := result("d", "TCS", "HOLD")
	withComment.Commentary = &types.Commentary{Capability: "TEMPLATE", TrendReport: "Predicted: ₹99.50"}
	if err := r.Record(ctx, withComment); err != nil {
		t.Fatal(err)
	}

	got, err := r.Recent(ctx, "INFY", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("Expected newest two (c, b), got %+v", got)
	}
	if got[0].Indicators["rsi"] == nil || *got[0].Indicators["rsi"] != 71.2 || got[0].Indicators["sma"] != nil {
		t.Errorf("Expected indicators round trip, got %v", got[0].Indicators)
	}
	if got[0].Commentary != nil {
		t.Error("Expected no commentary for INFY")
	}

	tcs, _ := r.Recent(ctx, "TCS", 0)
	if len(tcs) != 1 || tcs[0].Commentary == nil || tcs[0].Commentary.TrendReport != "Predicted: ₹99.50" {
		t.Errorf("Expected TCS commentary round trip, got %+v", tcs)
	}
}

func TestSQLiteUpsertAndValidation(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()

	r.Record(ctx, result("same", "SBIN", "SELL"))
	r.Record(ctx, result("same", "SBIN", "HOLD"))
	got, _ := r.Recent(ctx, "SBIN", 10)
	if len(got) != 1 || got[0].Decision.Action != "HOLD" {
		t.Errorf("Expected one row replaced by id, got %+v", got)
	}

	if err := r.Record(ctx, result("", "SBIN", "SELL")); err == nil {
		t.Error("Expected error for missing id")
	}
	if err := r.Record(ctx, nil); err == nil {
		t.Error("Expected error for nil result")
	}
}

type sinkFunc struct {
	err    error
	calls  int
	closed bool
}

func (s *sinkFunc) Record(context.Context, *types.StepResult) error {
	s.calls++
	return s.err
}

func (s *sinkFunc) Close() error {
	s.closed = true
	return s.err
}

func TestMultiTriesEverySink(t *testing.T) {
	boom := errors.New("disk full")
	a, b := &sinkFunc{err: boom}, &sinkFunc{}
	m := Multi{a, b, NoopRecorder{}}

	err := m.Record(context.Background(), result("x", "INFY", "BUY"))
	if !errors.Is(err, boom) {
		t.Errorf("Expected joined error to contain cause, got %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("Expected every sink called once, got %d/%d", a.calls, b.calls)
	}
	m.Close()
	if !a.closed || !b.closed {
		t.Error("Expected all sinks closed")
	}
	if err := (Multi{}).Record(context.Background(), nil); err != nil {
		t.Errorf("Expected nil for empty multi, got %v", err)
	}
}
