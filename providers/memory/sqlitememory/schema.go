package sqlitememory

import (
	"context"
	"fmt"
)

// createTableSQL stores one row per turn. The seq column provides monotonic
// ordering within a session, avoiding timestamp collisions between turns
// recorded in the same exchange.
const createTableSQL = `CREATE TABLE IF NOT EXISTS transcript_turns (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    role       TEXT NOT NULL,
    text       TEXT NOT NULL DEFAULT '',
    is_system  INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
)`

const createSessionSeqIndexSQL = `CREATE INDEX IF NOT EXISTS idx_transcript_turns_session_seq
    ON transcript_turns (session_id, seq)`

// EnsureSchema creates the transcript table and its index if they do not
// already exist. Open calls it; callers handing their own *sql.DB to New
// must call it once themselves.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("sqlitememory: create table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createSessionSeqIndexSQL); err != nil {
		return fmt.Errorf("sqlitememory: create session_seq index: %w", err)
	}
	return nil
}
