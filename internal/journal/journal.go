// Package journal appends every decision to a JSON-lines file per IST
// trading day and gzips days that fall out of the retention window.
package journal

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

// IST is the exchange's wall clock; day files roll over at IST midnight.
var IST = time.FixedZone("IST", 19800)

const (
	dayLayout  = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
	ext        = ".jsonl"
)

type Entry struct {
	ID             string              `json:"id"`
	Time           string              `json:"time"`
	BarTime        int64               `json:"bar_time"`
	Symbol         string              `json:"symbol"`
	Action         string              `json:"action"`
	Direction      string              `json:"direction"`
	Rule           string              `json:"rule"`
	Price          float64             `json:"price"`
	PredictedPrice float64             `json:"predicted_price"`
	Confidence     float64             `json:"confidence"`
	Bars           int                 `json:"bars"`
	Source         string              `json:"source"`
	Indicators     map[string]*float64 `json:"indicators,omitempty"`
	Recommendation string              `json:"recommendation,omitempty"`
	CommentaryErr  string              `json:"commentary_error,omitempty"`
}

// Journal writes entries under <dir>/decisions.
type Journal struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

var _ interfaces.DecisionSink = (*Journal)(nil)

func New(dir string) *Journal {
	if dir == "" {
		dir = "logs"
	}
	return &Journal{dir: dir, now: time.Now}
}

func (j *Journal) Dir() string { return filepath.Join(j.dir, "decisions") }

// DayPath is the uncompressed file for the IST day containing t.
func (j *Journal) DayPath(t time.Time) string {
	return filepath.Join(j.Dir(), t.In(IST).Format(dayLayout)+ext)
}

// Record appends one step result. Results without an id get a fresh one.
func (j *Journal) Record(_ context.Context, r *types.StepResult) error {
	if r == nil {
		return errors.New("nil step result")
	}
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	e := Entry{
		ID:             id,
		BarTime:        r.Time,
		Symbol:         r.Symbol,
		Action:         r.Decision.Action,
		Direction:      r.Decision.Direction,
		Rule:           r.Rule,
		Price:          r.Price,
		PredictedPrice: r.Decision.PredictedPrice,
		Confidence:     r.Decision.Confidence,
		Bars:           r.Bars,
		Source:         r.Source,
		Indicators:     r.Indicators,
		CommentaryErr:  r.CommentaryError,
	}
	if r.Commentary != nil {
		e.Recommendation = r.Commentary.Recommendation
	}
	return j.Append(e)
}

// Append stamps the entry with the current IST time and writes it.
func (j *Journal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().In(IST)
	e.Time = now.Format(timeLayout)
	p := j.DayPath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func (j *Journal) Close() error { return nil }

// ReadDay returns the entries recorded on an IST day, reading the gzipped
// file when the plain one has already been compressed. A day with no file
// yields no entries and no error.
func (j *Journal) ReadDay(day time.Time) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	p := j.DayPath(day)
	var r io.Reader
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		f, err = os.Open(p + ".gz")
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		defer f.Close()
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open %s.gz: %w", p, err)
		}
		defer gr.Close()
		r = gr
	} else if err != nil {
		return nil, err
	} else {
		defer f.Close()
		r = f
	}

	var out []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue // partial line from an interrupted write
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// CompressOlder gzips day files last modified before the retention window.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.Dir(), func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ext {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// if already gz exists, remove original
		if _, err := os.Stat(gz); err == nil {
			return os.Remove(p)
		}
		return gzipFile(p, gz)
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("compress %s: %w", src, err)
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
