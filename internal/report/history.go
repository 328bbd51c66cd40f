package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kensahq/kensa/internal/logging"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// sqliteTimeLayout is RFC3339 with a fixed-width fractional second, so the
// TEXT columns sort lexicographically in chronological order. RFC3339Nano
// would not: it drops trailing zeros, and "...:00Z" sorts after "...:00.5Z".
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// History stores completed runs in SQLite so statistics survive across
// harness executions.
type History struct {
	db     *sql.DB
	logger logging.Logger
}

// NewHistory opens (creating if needed) the history database at dbPath.
func NewHistory(dbPath string, logger logging.Logger) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &History{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "history"}),
	}, nil
}

func applySchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	environment      TEXT,
	started_at       TEXT NOT NULL,
	finished_at      TEXT NOT NULL,
	total            INTEGER NOT NULL,
	passed           INTEGER NOT NULL,
	failed           INTEGER NOT NULL,
	skipped          INTEGER NOT NULL,
	duration_seconds REAL NOT NULL,
	success_rate     REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	status           TEXT NOT NULL,
	timestamp        TEXT NOT NULL,
	duration_seconds REAL,
	error            TEXT,
	screenshots      TEXT
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
PRAGMA foreign_keys = ON;
`
	_, err := db.Exec(schema)
	return err
}

// CommitRun stores a completed run and its results in one transaction.
func (h *History) CommitRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("run must have an id")
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, environment, started_at, finished_at, total, passed, failed, skipped, duration_seconds, success_rate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Environment,
		run.StartedAt.UTC().Format(sqliteTimeLayout),
		run.FinishedAt.UTC().Format(sqliteTimeLayout),
		run.Stats.Total, run.Stats.Passed, run.Stats.Failed, run.Stats.Skipped,
		run.Stats.DurationSeconds, run.Stats.SuccessRate,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, r := range run.Results {
		shots, err := json.Marshal(r.Screenshots)
		if err != nil {
			return fmt.Errorf("marshal screenshots: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO results (run_id, name, status, timestamp, duration_seconds, error, screenshots)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.Name, string(r.Status),
			r.Timestamp.UTC().Format(sqliteTimeLayout),
			r.DurationSeconds, r.Error, string(shots),
		)
		if err != nil {
			return fmt.Errorf("insert result %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	h.logger.Info("run committed to history",
		logging.Field{Key: "run_id", Value: run.ID},
		logging.Field{Key: "total", Value: run.Stats.Total})
	return nil
}

// ListRuns returns stored runs, newest first, without their results.
func (h *History) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, environment, started_at, finished_at, total, passed, failed, skipped, duration_seconds, success_rate
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns one run with its results, or ErrRunNotFound.
func (h *History) GetRun(ctx context.Context, id string) (*Run, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT id, environment, started_at, finished_at, total, passed, failed, skipped, duration_seconds, success_rate
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT name, status, timestamp, duration_seconds, error, screenshots
		 FROM results WHERE run_id = ? ORDER BY timestamp`, id)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r        Result
			status   string
			ts       string
			errText  sql.NullString
			shotsRaw sql.NullString
		)
		if err := rows.Scan(&r.Name, &status, &ts, &r.DurationSeconds, &errText, &shotsRaw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Status = Status(status)
		r.Timestamp, _ = time.Parse(sqliteTimeLayout, ts)
		r.Error = errText.String
		if shotsRaw.Valid && shotsRaw.String != "" {
			_ = json.Unmarshal([]byte(shotsRaw.String), &r.Screenshots)
		}
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return run, nil
}

// Close releases the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		started  string
		finished string
	)
	err := row.Scan(&run.ID, &run.Environment, &started, &finished,
		&run.Stats.Total, &run.Stats.Passed, &run.Stats.Failed, &run.Stats.Skipped,
		&run.Stats.DurationSeconds, &run.Stats.SuccessRate)
	if err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(sqliteTimeLayout, started)
	run.FinishedAt, _ = time.Parse(sqliteTimeLayout, finished)
	return &run, nil
}
