package sqlitememory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leofalp/sequencer/core/chat"
	"github.com/leofalp/sequencer/providers/memory"
	"github.com/leofalp/sequencer/providers/observability"
)

const backendName = "sqlite"

// Store implements [memory.Provider] on a SQLite database. Thread safety is
// handled by database/sql and SQLite's own locking; no application-level
// mutex is needed.
type Store struct {
	db     *sql.DB
	ownsDB bool
	now    func() time.Time
}

// Compile-time check: Store must implement memory.Provider.
var _ memory.Provider = (*Store)(nil)

// Open creates (or reopens) the database file at path, switches it to WAL
// journaling and ensures the schema exists. Parent directories are created
// as needed. The returned store owns the connection and Close releases it.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlitememory: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitememory: open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitememory: set WAL mode: %w", err)
	}

	store := New(db)
	store.ownsDB = true
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an already opened database. The caller keeps ownership of db.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close releases the database when the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// AppendTurns writes turns in one transaction so an exchange is either
// recorded whole or not at all.
func (s *Store) AppendTurns(ctx context.Context, sessionID string, turns ...chat.Turn) (err error) {
	if len(turns) == 0 {
		return nil
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventTranscriptAppend,
			observability.String(observability.AttrTranscriptBackend, backendName),
			observability.Int(observability.AttrTranscriptTurns, len(turns)),
		)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitememory: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	statement, err := tx.PrepareContext(ctx,
		`INSERT INTO transcript_turns (session_id, role, text, is_system, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitememory: prepare insert: %w", err)
	}
	defer statement.Close()

	createdAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, turn := range turns {
		if _, err = statement.ExecContext(ctx, sessionID, string(turn.Role), turn.Text, turn.IsSystem, createdAt); err != nil {
			return fmt.Errorf("sqlitememory: insert turn: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlitememory: commit: %w", err)
	}
	return nil
}

// Turns returns the session's transcript in insertion order.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, text, is_system FROM transcript_turns WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlitememory: query turns: %w", err)
	}
	defer rows.Close()

	turns := []chat.Turn{}
	for rows.Next() {
		var (
			role     string
			turn     chat.Turn
			isSystem bool
		)
		if err := rows.Scan(&role, &turn.Text, &isSystem); err != nil {
			return nil, fmt.Errorf("sqlitememory: scan turn: %w", err)
		}
		turn.Role = chat.Role(role)
		turn.IsSystem = isSystem
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitememory: iterate turns: %w", err)
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(observability.Int(observability.AttrTranscriptTurns, len(turns)))
	}
	return turns, nil
}

// Clear deletes every turn of the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventTranscriptClear,
			observability.String(observability.AttrTranscriptBackend, backendName),
		)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcript_turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("sqlitememory: clear: %w", err)
	}
	return nil
}

// Sessions lists the ids of every recorded session, most recently active
// first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM transcript_turns GROUP BY session_id ORDER BY MAX(seq) DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlitememory: query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("sqlitememory: scan session: %w", err)
		}
		sessions = append(sessions, sessionID)
	}
	return sessions, rows.Err()
}
