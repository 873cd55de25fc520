package chat

import (
	"github.com/leofalp/sequencer/core/protocol"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = protocol.RoleUser
	RoleModel Role = protocol.RoleModel
)

// Turn is one entry of the chat history. System turns are notices
// synthesized on the client side (fallbacks, errors); they carry the model
// role and are never sent back to the model.
type Turn struct {
	Role     Role   `json:"role"`
	Text     string `json:"text"`
	IsSystem bool   `json:"isSystem,omitempty"`
}

// UserTurn returns a turn typed by the user.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// ModelTurn returns a model reply turn.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}

// SystemTurn returns a synthesized notice turn.
func SystemTurn(text string) Turn {
	return Turn{Role: RoleModel, Text: text, IsSystem: true}
}

// IsLiveCandidate reports whether streamed text may be appended to the turn.
func (t Turn) IsLiveCandidate() bool {
	return t.Role == RoleModel && !t.IsSystem
}

// HistoryEntry converts the turn to its wire shape.
func (t Turn) HistoryEntry() protocol.HistoryEntry {
	return protocol.HistoryEntry{
		Role:     string(t.Role),
		Parts:    []string{t.Text},
		IsSystem: t.IsSystem,
	}
}

// ToHistory converts turns to the history sent with a chat request.
func ToHistory(turns []Turn) []protocol.HistoryEntry {
	history := make([]protocol.HistoryEntry, 0, len(turns))
	for _, turn := range turns {
		history = append(history, turn.HistoryEntry())
	}
	return history
}

// FromHistory converts wire history entries back to turns.
func FromHistory(entries []protocol.HistoryEntry) []Turn {
	turns := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		turns = append(turns, Turn{Role: Role(entry.Role), Text: entry.Text(), IsSystem: entry.IsSystem})
	}
	return turns
}

func cloneTurns(turns []Turn) []Turn {
	cloned := make([]Turn, len(turns))
	copy(cloned, turns)
	return cloned
}
