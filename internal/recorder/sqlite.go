package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

// SQLiteRecorder persists decisions to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

var _ interfaces.DecisionSink = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the CLI read history while watch is writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id              TEXT PRIMARY KEY,
			recorded_at     INTEGER NOT NULL,
			bar_time        INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			action          TEXT NOT NULL,
			direction       TEXT NOT NULL,
			rule            TEXT,
			price           REAL,
			predicted_price REAL,
			confidence      REAL,
			bars            INTEGER,
			source          TEXT,
			indicators      TEXT,
			commentary      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_symbol_ts ON decisions(symbol, recorded_at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Record(ctx context.Context, res *types.StepResult) error {
	if res == nil {
		return errors.New("nil step result")
	}
	if res.ID == "" {
		return errors.New("step result has no id")
	}
	ind, err := json.Marshal(res.Indicators)
	if err != nil {
		return fmt.Errorf("encode indicators: %w", err)
	}
	var commentary []byte
	if res.Commentary != nil {
		if commentary, err = json.Marshal(res.Commentary); err != nil {
			return fmt.Errorf("encode commentary: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT OR REPLACE INTO decisions
		(id, recorded_at, bar_time, symbol, action, direction, rule,
		 price, predicted_price, confidence, bars, source, indicators, commentary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, r.now().Unix(), res.Time, res.Symbol, res.Decision.Action, res.Decision.Direction, res.Rule,
		res.Price, res.Decision.PredictedPrice, res.Decision.Confidence, res.Bars, res.Source,
		string(ind), nullString(commentary))
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func nullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// Recent returns up to limit decisions for a symbol, newest first.
func (r *SQLiteRecorder) Recent(ctx context.Context, symbol string, limit int) ([]types.StepResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, bar_time, symbol, action, direction, rule,
		price, predicted_price, confidence, bars, source, indicators, commentary
		FROM decisions WHERE symbol = ? ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []types.StepResult
	for rows.Next() {
		var (
			s         types.StepResult
			rule, src sql.NullString
			ind, comm sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Time, &s.Symbol, &s.Decision.Action, &s.Decision.Direction, &rule,
			&s.Price, &s.Decision.PredictedPrice, &s.Decision.Confidence, &s.Bars, &src, &ind, &comm); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		s.Rule, s.Source = rule.String, src.String
		if ind.Valid && ind.String != "" {
			if err := json.Unmarshal([]byte(ind.String), &s.Indicators); err != nil {
				return nil, fmt.Errorf("decode indicators: %w", err)
			}
		}
		if comm.Valid {
			s.Commentary = &types.Commentary{}
			if err := json.Unmarshal([]byte(comm.String), s.Commentary); err != nil {
				return nil, fmt.Errorf("decode commentary: %w", err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
