// Package history holds the conversation of one reproduction attempt and the
// token budget that decides when it has to be compacted.
package history

import (
	"fmt"
	"strings"
	"sync"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role name read from a preamble or checkpoint file.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// label is the speaker prefix used when the history is flattened to text.
func (r Role) label() string {
	switch r {
	case RoleSystem:
		return "System"
	case RoleAssistant:
		return "Assistant"
	default:
		return "User"
	}
}

// Turn is one role-tagged message. It is a value: once appended it is never
// changed, corrections are new turns.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the ordered turn log of a single attempt.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

// New returns a history seeded with a copy of preamble.
func New(preamble []Turn) *History {
	h := &History{}
	h.turns = append(h.turns, preamble...)
	return h
}

// Append adds a turn at the end.
func (h *History) Append(role Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, Turn{Role: role, Content: content})
}

// Turns returns a snapshot of the history.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Last returns the most recent turn.
func (h *History) Last() (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// DropLast removes and returns the most recent turn. Only compaction uses it,
// to swap an oversized turn for its truncated copy.
func (h *History) DropLast() (Turn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	last := h.turns[len(h.turns)-1]
	h.turns = h.turns[:len(h.turns)-1]
	return last, true
}

// Reset discards every turn and reseeds the history with turns.
func (h *History) Reset(turns []Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(make([]Turn, 0, len(turns)+2), turns...)
}

// Text flattens the history into the single prompt sent to the model.
func (h *History) Text() string {
	return Flatten(h.Turns())
}

// Flatten renders turns as "Role: content" blocks separated by blank lines.
func Flatten(turns []Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(t.Role.label())
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
