package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chronos-quant/internal/types"
)

func fixed(j *Journal, t time.Time) { j.now = func() time.Time { return t } }

func step(symbol, action string, conf float64) *types.StepResult {
	rsi := 28.5
	return &types.StepResult{
		Symbol:     symbol,
		Decision:   types.DecisionRecord{Action: action, Direction: "UP", PredictedPrice: 101.5, Confidence: conf},
		Rule:       "oversold_above_sma",
		Price:      100,
		Time:       1736150400,
		Bars:       120,
		Source:     "static",
		Indicators: map[string]*float64{"rsi": &rsi, "macd": nil},
		Commentary: &types.Commentary{Capability: "TEMPLATE", Recommendation: "Action: BUY"},
	}
}

func TestRecordAndReadDay(t *testing.T) {
	j := New(t.TempDir())
	// 20:00 UTC on Jan 5 is already Jan 6 in IST
	now := time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)
	fixed(j, now)

	if err := j.Record(context.Background(), step("INFY", "BUY", 80)); err != nil {
		t.Fatal(err)
	}
	withID := step("TCS", "HOLD", 60)
	withID.ID = "fixed-id"
	withID.Commentary = nil
	withID.CommentaryError = "llm timeout"
	if err := j.Record(context.Background(), withID); err != nil {
		t.Fatal(err)
	}

	if filepath.Base(j.DayPath(now)) != "2025-01-06.jsonl" {
		t.Errorf("Expected IST day file, got %s", j.DayPath(now))
	}
	got, err := j.ReadDay(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	e := got[0]
	if e.ID == "" || e.Symbol != "INFY" || e.Time != "2025-01-06 01:30:00" || e.Recommendation != "Action: BUY" {
		t.Errorf("Unexpected entry %+v", e)
	}
	if e.Indicators["rsi"] == nil || *e.Indicators["rsi"] != 28.5 || e.Indicators["macd"] != nil {
		t.Errorf("Expected indicators round trip with nulls, got %v", e.Indicators)
	}
	if e.CommentaryErr != "" || got[1].CommentaryErr != "llm timeout" {
		t.Errorf("Expected commentary error kept only on TCS, got %q and %q", e.CommentaryErr, got[1].CommentaryErr)
	}
	if got[1].ID != "fixed-id" {
		t.Errorf("Expected caller id kept, got %s", got[1].ID)
	}
}

func TestReadDayMissing(t *testing.T) {
	j := New(t.TempDir())
	got, err := j.ReadDay(time.Now())
	if err != nil || got != nil {
		t.Errorf("Expected empty result, got %v %v", got, err)
	}
}

func TestReadDaySkipsPartialLines(t *testing.T) {
	j := New(t.TempDir())
	now := time.Date(2025, 2, 3, 6, 0, 0, 0, time.UTC)
	fixed(j, now)
	j.Record(context.Background(), step("SBIN", "SELL", 70))

	f, _ := os.OpenFile(j.DayPath(now), os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString(`{"id":"trunc`)
	f.Close()

	got, err := j.ReadDay(now)
	if err != nil || len(got) != 1 {
		t.Errorf("Expected 1 valid entry, got %d (%v)", len(got), err)
	}
}

func TestCompressOlder(t *testing.T) {
	j := New(t.TempDir())
	old := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	fixed(j, old)
	j.Record(context.Background(), step("INFY", "BUY", 75))
	oldPath := j.DayPath(old)
	os.Chtimes(oldPath, old, old)

	now := old.AddDate(0, 0, 10)
	fixed(j, now)
	j.Record(context.Background(), step("INFY", "HOLD", 60))

	if err := j.CompressOlder(3); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("Expected old file to be removed")
	}
	if _, err := os.Stat(oldPath + ".gz"); err != nil {
		t.Errorf("Expected gzip file, got %v", err)
	}
	if _, err := os.Stat(j.DayPath(now)); err != nil {
		t.Errorf("Expected recent file kept, got %v", err)
	}

	got, err := j.ReadDay(old)
	if err != nil || len(got) != 1 || got[0].Action != "BUY" {
		t.Errorf("Expected compressed day to stay readable, got %v %v", got, err)
	}
}

func TestCompressOlderNoDir(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "missing"))
	if err := j.CompressOlder(1); err != nil {
		t.Errorf("Expected no error for missing dir, got %v", err)
	}
}
