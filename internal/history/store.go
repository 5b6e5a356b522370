// Package history keeps a SQLite log of finished voice commands.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"trafficaz/internal/assistant"
	"trafficaz/internal/intent"
)

// Entry is one stored command turn.
type Entry struct {
	ID         string            `json:"id"`
	Session    uint64            `json:"session"`
	Intent     intent.Name       `json:"intent,omitempty"`
	Pattern    string            `json:"pattern,omitempty"`
	Transcript string            `json:"transcript"`
	Outcome    assistant.Outcome `json:"outcome"`
	Classified bool              `json:"classified"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	CreatedAt  time.Time         `json:"created_at"`
}

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(pctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS commands (
  id          TEXT PRIMARY KEY,
  session     INTEGER NOT NULL,
  intent      TEXT NOT NULL DEFAULT '',
  pattern     TEXT NOT NULL DEFAULT '',
  transcript  TEXT NOT NULL,
  outcome     TEXT NOT NULL,
  classified  INTEGER NOT NULL DEFAULT 0,
  error       TEXT,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  created_at  TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS commands_created_at_idx ON commands(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap history: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordResolution stores a finished turn.
func (s *Store) RecordResolution(ctx context.Context, r assistant.Resolution) error {
	var errText sql.NullString
	if r.Err != nil {
		errText = sql.NullString{String: r.Err.Error(), Valid: true}
	}
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO commands
  (id, session, intent, pattern, transcript, outcome, classified, error, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		uuid.NewString(),
		int64(r.Session),
		string(r.Intent),
		r.Pattern,
		r.Transcript,
		string(r.Outcome),
		r.Classified,
		errText,
		r.Duration.Milliseconds(),
		at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, session, intent, pattern, transcript, outcome, classified, error, duration_ms, created_at
FROM commands ORDER BY created_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			session int64
			name    string
			outcome string
			errText sql.NullString
			created string
		)
		if err := rows.Scan(&e.ID, &session, &name, &e.Pattern, &e.Transcript, &outcome, &e.Classified, &errText, &e.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		e.Session = uint64(session)
		e.Intent = intent.Name(name)
		e.Outcome = assistant.Outcome(outcome)
		e.Error = errText.String
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return out, nil
}
