// Package journal persists pipeline update runs and per-node outcomes in
// SQLite (WAL mode) so past runs can be listed with `streamgrid history`.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Outcome of a run.
const (
	OutcomeRunning   = "running"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCached    = "cached"
)

// Run is one recorded Update.
type Run struct {
	ID         uuid.UUID
	Pipeline   string
	Targets    []string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Error      string
	Executed   int
	Reused     int
	Failed     int
	Skipped    int
}

// Duration is the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NodeEntry is one node outcome inside a run.
type NodeEntry struct {
	RunID    uuid.UUID
	Node     string
	Kind     string
	Action   string
	Request  string
	Duration time.Duration
	Error    string
	At       time.Time
}

// Journal is the SQLite-backed run history.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		pipeline    TEXT NOT NULL DEFAULT '',
		targets     TEXT NOT NULL DEFAULT '[]',
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		outcome     TEXT NOT NULL,
		error       TEXT NOT NULL DEFAULT '',
		executed    INTEGER NOT NULL DEFAULT 0,
		reused      INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS node_runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL REFERENCES runs(id),
		node        TEXT NOT NULL,
		kind        TEXT NOT NULL,
		action      TEXT NOT NULL,
		request     TEXT NOT NULL DEFAULT '',
		duration_us INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		at          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_node_runs_run ON node_runs(run_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// StartRun records a run as running.
func (j *Journal) StartRun(ctx context.Context, r Run) error {
	targets, err := json.Marshal(r.Targets)
	if err != nil {
		return err
	}
	return retryOnContention(func() error {
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO runs (id, pipeline, targets, started_at, outcome) VALUES (?, ?, ?, ?, ?)`,
			r.ID.String(), r.Pipeline, string(targets), formatTime(r.StartedAt), OutcomeRunning,
		)
		return err
	})
}

// FinishRun stores the outcome and counters of a run.
func (j *Journal) FinishRun(ctx context.Context, r Run) error {
	return retryOnContention(func() error {
		res, err := j.db.ExecContext(ctx,
			`UPDATE runs SET finished_at = ?, outcome = ?, error = ?, executed = ?, reused = ?, failed = ?, skipped = ?
			 WHERE id = ?`,
			formatTime(r.FinishedAt), r.Outcome, r.Error, r.Executed, r.Reused, r.Failed, r.Skipped, r.ID.String(),
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %s not found", r.ID)
		}
		return nil
	})
}

// RecordNode appends one node outcome.
func (j *Journal) RecordNode(ctx context.Context, e NodeEntry) error {
	return retryOnContention(func() error {
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO node_runs (run_id, node, kind, action, request, duration_us, error, at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RunID.String(), e.Node, e.Kind, e.Action, e.Request, e.Duration.Microseconds(), e.Error, formatTime(e.At),
		)
		return err
	})
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, pipeline, targets, started_at, finished_at, outcome, error, executed, reused, failed, skipped
	      FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Get returns one run.
func (j *Journal) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, pipeline, targets, started_at, finished_at, outcome, error, executed, reused, failed, skipped
		 FROM runs WHERE id = ?`, id.String())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return r, err
}

// Nodes returns the node outcomes of a run in the order they happened.
func (j *Journal) Nodes(ctx context.Context, id uuid.UUID) ([]NodeEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, node, kind, action, request, duration_us, error, at
		 FROM node_runs WHERE run_id = ? ORDER BY id`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list node runs: %w", err)
	}
	defer rows.Close()

	var out []NodeEntry
	for rows.Next() {
		var (
			e     NodeEntry
			runID string
			durUS int64
			atStr string
		)
		if err := rows.Scan(&runID, &e.Node, &e.Kind, &e.Action, &e.Request, &durUS, &e.Error, &atStr); err != nil {
			return nil, err
		}
		if e.RunID, err = uuid.Parse(runID); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durUS) * time.Microsecond
		e.At = parseTime(atStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r        Run
		id       string
		targets  string
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&id, &r.Pipeline, &targets, &started, &finished, &r.Outcome, &r.Error,
		&r.Executed, &r.Reused, &r.Failed, &r.Skipped); err != nil {
		return nil, err
	}
	var err error
	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("run id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(targets), &r.Targets); err != nil {
		return nil, fmt.Errorf("run %s targets: %w", id, err)
	}
	r.StartedAt = parseTime(started)
	if finished.Valid {
		r.FinishedAt = parseTime(finished.String)
	}
	return &r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// retryOnContention retries writes that hit transient SQLite lock errors.
func retryOnContention(fn func() error) error {
	const attempts = 4
	delay := 25 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !isTransient(err) {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
	return err
}

func isTransient(err error) bool {
	msg := err.Error()
	for _, pattern := range []string{"SQLITE_BUSY", "SQLITE_LOCKED", "database is locked", "database table is locked"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
