// Package eod writes the end-of-day CSV summary of the decision journal.
package eod

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/journal"
)

// Summaries are written once the session is over.
const closeHour, closeMinute = 15, 40

type aggRow struct {
	Symbol        string
	Evaluations   int
	Up            int
	Down          int
	Flat          int
	ConfidenceSum float64
	LastTime      string
	LastAction    string
	LastRule      string
	LastPrice     float64
	LastPredicted float64
}

type summarizer struct {
	journal *journal.Journal
	outDir  string
	now     func() time.Time
}

var _ interfaces.EodSummarizer = (*summarizer)(nil)

// NewSummarizer reads j and writes CSVs to <dir>/eod.
func NewSummarizer(j *journal.Journal, dir string) interfaces.EodSummarizer {
	return newSummarizer(j, dir, time.Now)
}

func newSummarizer(j *journal.Journal, dir string, now func() time.Time) *summarizer {
	return &summarizer{journal: j, outDir: filepath.Join(dir, "eod"), now: now}
}

func (s *summarizer) istNow() time.Time { return s.now().In(journal.IST) }

func (s *summarizer) csvPath(t time.Time) string {
	return filepath.Join(s.outDir, t.In(journal.IST).Format("2006-01-02")+".csv")
}

// finalPath marks a CSV written after its day closed. A CSV without it is a
// partial summary and gets rewritten.
func (s *summarizer) finalPath(t time.Time) string { return s.csvPath(t) + ".final" }

func cutoffOf(t time.Time) time.Time {
	t = t.In(journal.IST)
	return time.Date(t.Year(), t.Month(), t.Day(), closeHour, closeMinute, 0, 0, journal.IST)
}

// SummarizeDay aggregates the journal for the IST day of t. It returns an
// empty path and no error when nothing was recorded that day.
func (s *summarizer) SummarizeDay(t time.Time) (string, error) {
	entries, err := s.journal.ReadDay(t)
	if err != nil {
		return "", fmt.Errorf("read journal: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}

	aggs := map[string]*aggRow{}
	for _, e := range entries {
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}
		row.Evaluations++
		row.ConfidenceSum += e.Confidence
		switch e.Direction {
		case "UP":
			row.Up++
		case "DOWN":
			row.Down++
		default:
			row.Flat++
		}
		// Entries are appended in time order, so the last one wins
		row.LastTime = e.Time
		row.LastAction = e.Action
		row.LastRule = e.Rule
		row.LastPrice = e.Price
		row.LastPredicted = e.PredictedPrice
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := s.csvPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	if err := writeCSV(outPath, keys, aggs); err != nil {
		return "", err
	}

	marker := s.finalPath(t)
	if s.istNow().After(cutoffOf(t)) {
		if err := os.WriteFile(marker, nil, 0o644); err != nil {
			return "", err
		}
	} else if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return outPath, nil
}

func writeCSV(outPath string, keys []string, aggs map[string]*aggRow) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := writeRows(out, keys, aggs); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeRows(out io.Writer, keys []string, aggs map[string]*aggRow) error {
	w := csv.NewWriter(out)
	headers := []string{"symbol", "evaluations", "up", "down", "flat", "avg_confidence",
		"last_time", "last_action", "last_rule", "last_price", "last_predicted"}
	if err := w.Write(headers); err != nil {
		return err
	}
	var total, up, down, flat int
	var confSum float64
	for _, k := range keys {
		r := aggs[k]
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.Evaluations),
			strconv.Itoa(r.Up),
			strconv.Itoa(r.Down),
			strconv.Itoa(r.Flat),
			fmt.Sprintf("%.2f", r.ConfidenceSum/float64(r.Evaluations)),
			r.LastTime,
			r.LastAction,
			r.LastRule,
			fmt.Sprintf("%.2f", r.LastPrice),
			fmt.Sprintf("%.2f", r.LastPredicted),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
		total += r.Evaluations
		up += r.Up
		down += r.Down
		flat += r.Flat
		confSum += r.ConfidenceSum
	}
	if err := w.Write([]string{"TOTAL", strconv.Itoa(total), strconv.Itoa(up), strconv.Itoa(down), strconv.Itoa(flat),
		fmt.Sprintf("%.2f", confSum/float64(total)), "", "", "", "", ""}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (s *summarizer) SummarizeToday() (string, error) { return s.SummarizeDay(s.istNow()) }

// ShouldRunNow is true after the close cutoff until today's CSV has been
// written post-close. A summary written during the session does not count.
func (s *summarizer) ShouldRunNow() (bool, string) {
	now := s.istNow()
	outPath := s.csvPath(now)
	if now.After(cutoffOf(now)) {
		if _, err := os.Stat(s.finalPath(now)); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}
