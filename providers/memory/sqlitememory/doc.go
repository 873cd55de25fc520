// Package sqlitememory persists chat transcripts to a SQLite database using
// the pure-Go modernc.org/sqlite driver, so no cgo toolchain is required.
//
// [Open] creates the database file, enables WAL journaling and creates the
// schema. Every turn is one row ordered by an autoincrement sequence; the
// turns of one AppendTurns call are written in a single transaction.
//
//	store, err := sqlitememory.Open(ctx, "transcripts.db")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//	session := chat.NewSession(client, chat.WithRecorder(store))
package sqlitememory
