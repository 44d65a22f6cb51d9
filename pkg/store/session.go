package store

import (
	"errors"
	"sync"
	"time"

	"doc-review-be/pkg/review/binding"
	"doc-review-be/pkg/review/criteria"
	"doc-review-be/pkg/review/ledger"
	"doc-review-be/pkg/review/usage"

	"github.com/google/uuid"
)

var ErrSessionBusy = errors.New("session is busy with another operation")

// Session is the state of one review client. Every operation receives it
// explicitly; nothing is shared between sessions.
type Session struct {
	ID string `json:"id"`

	// ThreadID is the remote conversation, created once and reused.
	ThreadID string `json:"thread_id"`
	// ActiveAssistantID is the assistant free-text chat is routed to.
	ActiveAssistantID string `json:"active_assistant_id"`
	// Watermark is the id of the newest remote message already consumed.
	Watermark string `json:"watermark"`

	Usage     *usage.Meter      `json:"-"`
	Ledger    *ledger.Ledger    `json:"-"`
	Board     *criteria.Board   `json:"-"`
	Documents *binding.Registry `json:"-"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`

	mu   sync.Mutex
	busy sync.Mutex
}

// NewSession builds a fresh session whose board covers every criterion of
// the catalog. The ledger is seeded with welcome when it is non-empty.
func NewSession(catalog *criteria.Catalog, rates usage.Rates, welcome string) *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		Usage:        usage.NewMeter(rates),
		Ledger:       ledger.New(),
		Board:        criteria.NewBoard(catalog),
		Documents:    binding.NewRegistry(),
		CreatedAt:    now,
		LastActivity: now,
	}
	if welcome != "" {
		s.Ledger.Append(ledger.RoleAssistant, welcome)
	}
	return s
}

// Acquire claims the session for one operation. It fails with
// ErrSessionBusy while another operation holds it.
func (s *Session) Acquire() (release func(), err error) {
	if !s.busy.TryLock() {
		return nil, ErrSessionBusy
	}
	s.Touch()
	return s.busy.Unlock, nil
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) Thread() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ThreadID
}

func (s *Session) SetThread(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ThreadID = id
}

func (s *Session) ActiveAssistant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ActiveAssistantID
}

func (s *Session) SetActiveAssistant(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ActiveAssistantID = id
}

func (s *Session) LastSeen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Watermark
}

// Advance moves the watermark. Empty ids are ignored.
func (s *Session) Advance(messageID string) {
	if messageID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Watermark = messageID
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	ID                string            `json:"id"`
	ActiveAssistantID string            `json:"active_assistant_id"`
	Criteria          []criteria.Entry  `json:"criteria"`
	Usage             usage.Totals      `json:"usage"`
	Documents         []binding.Binding `json:"documents"`
	Transcript        []ledger.Message  `json:"transcript"`
	CreatedAt         time.Time         `json:"created_at"`
	LastActivity      time.Time         `json:"last_activity"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:                s.ID,
		ActiveAssistantID: s.ActiveAssistantID,
		CreatedAt:         s.CreatedAt,
		LastActivity:      s.LastActivity,
	}
	s.mu.Unlock()

	snap.Criteria = s.Board.Snapshot()
	snap.Usage = s.Usage.Totals()
	snap.Documents = s.Documents.List()
	snap.Transcript = s.Ledger.Entries()
	return snap
}
