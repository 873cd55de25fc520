// Package memory defines the Provider interface for chat transcripts.
// A transcript is the ordered list of [chat.Turn] values of one session,
// including the system notices the client synthesized during the exchange.
//
// Every Provider satisfies [chat.TranscriptRecorder], so a store can be
// passed straight to [chat.WithRecorder]. Two implementations ship with the
// module: [github.com/leofalp/sequencer/providers/memory/inmemory] keeps
// transcripts in process memory and
// [github.com/leofalp/sequencer/providers/memory/sqlitememory] persists
// them to a SQLite file.
package memory
