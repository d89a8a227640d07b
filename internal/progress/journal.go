// Package progress keeps a SQLite journal of entities whose enriched
// statements are durably in the output file, so an interrupted run can
// resume without querying them again.
package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	input       TEXT NOT NULL,
	output      TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	statements  INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS entities (
	output      TEXT NOT NULL,
	entity      TEXT NOT NULL,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	batch       INTEGER NOT NULL,
	statements  INTEGER NOT NULL,
	failed      INTEGER NOT NULL DEFAULT 0,
	enriched_at TEXT NOT NULL,
	PRIMARY KEY (output, entity)
);
CREATE INDEX IF NOT EXISTS entities_run ON entities(run_id);
`

// Entry is one entity recorded after its batch was flushed
type Entry struct {
	Entity     string
	Statements int
	Failed     bool
}

// Run summarizes one journaled run
type Run struct {
	ID         string
	Input      string
	Output     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Statements int
	Failures   int
}

// Journal records run progress in a SQLite database
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// outputKey identifies an output file independently of how its path was
// spelled on the command line
func outputKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// StartRun registers a new run and returns its ID
func (j *Journal) StartRun(ctx context.Context, input, output string) (string, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, input, output, started_at) VALUES (?, ?, ?, ?)`,
		id, input, outputKey(output), j.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// Record marks the entities of one flushed batch against the output file of
// runID. An entity recorded earlier for the same output is overwritten with
// the latest outcome.
func (j *Journal) Record(ctx context.Context, runID string, batch int, entries []Entry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var output string
	err = tx.QueryRowContext(ctx, `SELECT output FROM runs WHERE id = ?`, runID).Scan(&output)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("record: unknown run %s", runID)
	}
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (output, entity, run_id, batch, statements, failed, enriched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(output, entity) DO UPDATE SET
			run_id = excluded.run_id,
			batch = excluded.batch,
			statements = excluded.statements,
			failed = excluded.failed,
			enriched_at = excluded.enriched_at`)
	if err != nil {
		return fmt.Errorf("prepare record: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	at := j.now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		if _, err = stmt.ExecContext(ctx, output, e.Entity, runID, batch, e.Statements, e.Failed, at); err != nil {
			return fmt.Errorf("record %s: %w", e.Entity, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Done returns the entities whose statements are already in output. Entities
// whose lookup failed are left out so a resumed run tries them again, and
// entities flushed to a different output file do not count.
func (j *Journal) Done(ctx context.Context, output string) (map[string]bool, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT entity FROM entities WHERE output = ? AND failed = 0`, outputKey(output))
	if err != nil {
		return nil, fmt.Errorf("query done: %w", err)
	}
	defer func() { _ = rows.Close() }()

	done := make(map[string]bool)
	for rows.Next() {
		var entity string
		if err := rows.Scan(&entity); err != nil {
			return nil, fmt.Errorf("scan done: %w", err)
		}
		done[entity] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query done: %w", err)
	}
	return done, nil
}

// FinishRun stores the totals of a completed or interrupted run
func (j *Journal) FinishRun(ctx context.Context, runID string, statements, failures int) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, statements = ?, failures = ? WHERE id = ?`,
		j.now().UTC().Format(time.RFC3339Nano), statements, failures, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// Runs lists journaled runs, most recent first
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, input, output, started_at, finished_at, statements, failures
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Input, &r.Output, &started, &finished, &r.Statements, &r.Failures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse run start: %w", err)
		}
		if finished.Valid {
			t, err := time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, fmt.Errorf("parse run finish: %w", err)
			}
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
