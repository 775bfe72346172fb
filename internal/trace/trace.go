// Package trace provides SQLite-backed recording of replay passes.
//
// The trace is purely observational: the engine works identically with
// or without a recorder attached. Each replayed placeholder becomes one
// row keyed by (run token, seq), where seq is the engine's monotonic
// counter, so a trace of a deterministic input is itself deterministic.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one replayed placeholder.
type Entry struct {
	RunToken    string
	Seq         int64
	Opcode      string
	Func        string
	Placeholder string
	Replacement string
	Forced      bool // replayed out of order by the dependency resolver
}

// Recorder writes and reads replay traces.
type Recorder struct {
	db *sql.DB
}

// Open creates or opens a trace database at the given path.
//
// The database is configured with WAL mode, NORMAL synchronous mode, and
// a 5-second busy timeout. Open is idempotent.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to trace database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under the engine's synchronous writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply trace schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// WriteReplay appends one replay entry.
func (r *Recorder) WriteReplay(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO replays (run_token, seq, opcode, func, placeholder, replacement, forced)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunToken, e.Seq, e.Opcode, e.Func, e.Placeholder, e.Replacement, boolInt(e.Forced),
	)
	if err != nil {
		return fmt.Errorf("write replay entry (run=%s seq=%d): %w", e.RunToken, e.Seq, err)
	}
	return nil
}

// ReadRun returns all entries for a run token in seq order.
func (r *Recorder) ReadRun(ctx context.Context, runToken string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_token, seq, opcode, func, placeholder, replacement, forced
		FROM replays WHERE run_token = ?
		ORDER BY seq ASC`,
		runToken,
	)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runToken, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var forced int
		if err := rows.Scan(&e.RunToken, &e.Seq, &e.Opcode, &e.Func, &e.Placeholder, &e.Replacement, &forced); err != nil {
			return nil, fmt.Errorf("scan replay entry: %w", err)
		}
		e.Forced = forced != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run %s: %w", runToken, err)
	}
	return entries, nil
}

// Runs returns the distinct run tokens in the trace, ordered by token.
// Run tokens are time-sortable UUIDv7 values in production, so token
// order is creation order.
func (r *Recorder) Runs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT run_token FROM replays ORDER BY run_token ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan run token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return tokens, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
