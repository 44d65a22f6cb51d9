// Package ledger keeps the ordered record of every turn exchanged in a review session.
package ledger

import (
	"errors"
	"strings"
	"sync"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNothingToExport is returned by Export when no turn has been recorded.
var ErrNothingToExport = errors.New("ledger: nothing to export")

// Message is a single turn. It is never mutated once appended.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type key struct {
	role    string
	content string
}

// Ledger is append-only and holds at most one entry per (role, content) pair.
// Two distinct turns with identical text collapse into one.
type Ledger struct {
	mu      sync.RWMutex
	entries []Message
	seen    map[key]struct{}
}

func New() *Ledger {
	return &Ledger{seen: make(map[key]struct{})}
}

// Append records a turn and reports whether it was actually added.
func (l *Ledger) Append(role, content string) bool {
	k := key{role: role, content: content}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[k]; dup {
		return false
	}
	l.seen[k] = struct{}{}
	l.entries = append(l.entries, Message{Role: role, Content: content})
	return true
}

// Contains reports whether the exact turn was already recorded.
func (l *Ledger) Contains(role, content string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[key{role: role, content: content}]
	return ok
}

// Entries returns a copy of the turns in append order.
func (l *Ledger) Entries() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear drops every turn and the de-duplication index.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.seen = make(map[key]struct{})
}

// Export joins the content of every turn, role discarded, one paragraph each.
func (l *Ledger) Export() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return "", ErrNothingToExport
	}

	parts := make([]string, len(l.entries))
	for i, m := range l.entries {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n\n"), nil
}
