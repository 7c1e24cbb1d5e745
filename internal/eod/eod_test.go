package eod

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chronos-quant/internal/journal"
)

func writeDay(t *testing.T, j *journal.Journal, day time.Time, entries ...journal.Entry) {
	t.Helper()
	p := j.DayPath(day)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSummarizeDay(t *testing.T) {
	dir := t.TempDir()
	j := journal.New(dir)
	day := time.Date(2025, 1, 6, 12, 0, 0, 0, journal.IST)
	writeDay(t, j, day,
		journal.Entry{Time: "2025-01-06 09:20:00", Symbol: "TCS", Action: "BUY", Direction: "UP", Rule: "oversold_above_sma", Price: 4000, PredictedPrice: 4010, Confidence: 70},
		journal.Entry{Time: "2025-01-06 09:20:01", Symbol: "INFY", Action: "HOLD", Direction: "FLAT", Rule: "default_hold", Price: 1900, PredictedPrice: 1901, Confidence: 60},
		journal.Entry{Time: "2025-01-06 09:25:00", Symbol: "TCS", Action: "SELL", Direction: "DOWN", Rule: "overbought_below_sma", Price: 4005.5, PredictedPrice: 3990.25, Confidence: 80},
	)

	s := newSummarizer(j, dir, func() time.Time { return day })
	path, err := s.SummarizeDay(day)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "2025-01-06.csv" || filepath.Dir(path) != filepath.Join(dir, "eod") {
		t.Errorf("Expected %s/eod/2025-01-06.csv, got %s", dir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header, 2 symbols and total, got %d rows", len(rows))
	}
	if rows[1][0] != "INFY" || rows[2][0] != "TCS" || rows[3][0] != "TOTAL" {
		t.Errorf("Expected symbols sorted then TOTAL, got %v %v %v", rows[1][0], rows[2][0], rows[3][0])
	}
	tcs := rows[2]
	want := []string{"TCS", "2", "1", "1", "0", "75.00", "2025-01-06 09:25:00", "SELL", "overbought_below_sma", "4005.50", "3990.25"}
	for i := range want {
		if tcs[i] != want[i] {
			t.Errorf("Expected column %s = %s, got %s", rows[0][i], want[i], tcs[i])
		}
	}
	if rows[3][1] != "3" || rows[3][4] != "1" || rows[3][5] != "70.00" {
		t.Errorf("Unexpected total row %v", rows[3])
	}
}

func TestSummarizeDayWithoutEntries(t *testing.T) {
	dir := t.TempDir()
	s := newSummarizer(journal.New(dir), dir, time.Now)
	path, err := s.SummarizeDay(time.Date(2025, 1, 6, 12, 0, 0, 0, journal.IST))
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("Expected no file for an empty day, got %s", path)
	}
}

func TestShouldRunNow(t *testing.T) {
	dir := t.TempDir()
	j := journal.New(dir)

	before := time.Date(2025, 1, 6, 15, 30, 0, 0, journal.IST)
	s := newSummarizer(j, dir, func() time.Time { return before })
	if ok, _ := s.ShouldRunNow(); ok {
		t.Error("Expected no run before the cutoff")
	}

	// 10:30 UTC is 16:00 IST
	after := time.Date(2025, 1, 6, 10, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return after }
	ok, path := s.ShouldRunNow()
	if !ok {
		t.Fatal("Expected a run after the cutoff")
	}
	if filepath.Base(path) != "2025-01-06.csv" {
		t.Errorf("Expected today's csv path, got %s", path)
	}

	writeDay(t, j, after, journal.Entry{Symbol: "INFY", Direction: "FLAT", Action: "HOLD", Confidence: 60})
	if _, err := s.SummarizeToday(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.ShouldRunNow(); ok {
		t.Error("Expected no run once the summary exists")
	}
}

func TestMidSessionSummaryIsRewrittenAfterClose(t *testing.T) {
	dir := t.TempDir()
	j := journal.New(dir)
	noon := time.Date(2025, 1, 6, 12, 0, 0, 0, journal.IST)
	tcs := journal.Entry{Time: "2025-01-06 11:55:00", Symbol: "TCS", Action: "BUY", Direction: "UP", Rule: "oversold_above_sma", Price: 4000, PredictedPrice: 4010, Confidence: 70}
	writeDay(t, j, noon, tcs)

	s := newSummarizer(j, dir, func() time.Time { return noon })
	path, err := s.SummarizeToday()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.finalPath(noon)); !os.IsNotExist(err) {
		t.Errorf("Expected no final marker for a mid-session summary, got %v", err)
	}

	infy := journal.Entry{Time: "2025-01-06 14:00:00", Symbol: "INFY", Action: "BUY", Direction: "UP", Rule: "oversold_above_sma", Price: 1900, PredictedPrice: 1910, Confidence: 65}
	writeDay(t, j, noon, tcs, infy)

	s.now = func() time.Time { return time.Date(2025, 1, 6, 16, 0, 0, 0, journal.IST) }
	if ok, _ := s.ShouldRunNow(); !ok {
		t.Fatal("Expected a run after close despite the mid-session CSV")
	}
	if _, err := s.SummarizeToday(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[1][0] != "INFY" || rows[2][0] != "TCS" {
		t.Errorf("Expected INFY and TCS in the rewritten CSV, got %v", rows)
	}
	if ok, _ := s.ShouldRunNow(); ok {
		t.Error("Expected no run once the post-close summary exists")
	}
}

func TestPastDaySummaryIsFinal(t *testing.T) {
	dir := t.TempDir()
	j := journal.New(dir)
	day := time.Date(2025, 1, 6, 10, 0, 0, 0, journal.IST)
	writeDay(t, j, day, journal.Entry{Symbol: "INFY", Direction: "FLAT", Action: "HOLD", Confidence: 60})

	s := newSummarizer(j, dir, func() time.Time { return day.AddDate(0, 0, 1) })
	if _, err := s.SummarizeDay(day); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.finalPath(day)); err != nil {
		t.Errorf("Expected final marker for a closed day, got %v", err)
	}
}
