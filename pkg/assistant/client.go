// Package assistant describes the hosted assistant service the review
// orchestration drives: threads, runs, messages and the searchable corpus.
package assistant

import (
	"context"
	"fmt"
)

type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether the run will not change status anymore.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusCancelled, RunStatusFailed, RunStatusIncomplete, RunStatusExpired:
		return true
	}
	return false
}

// Usage is the token accounting a completed run may carry.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Run struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Status   RunStatus `json:"status"`
	Usage    *Usage    `json:"usage"`
}

// Message is a remote thread message flattened to its text content.
type Message struct {
	ID      string `json:"id"`
	RunID   string `json:"run_id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the boundary to the hosted assistant. Implementations must be
// safe for sequential use per thread.
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	PostMessage(ctx context.Context, threadID, role, content string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	// ListMessages returns the thread messages created after the message
	// with id after (all messages if empty), oldest first.
	ListMessages(ctx context.Context, threadID, after string) ([]Message, error)

	CreateOrFindCorpus(ctx context.Context, name string) (string, error)
	IngestDocument(ctx context.Context, corpusID, fileName string, content []byte) (string, error)
	DeleteFromCorpus(ctx context.Context, corpusID, remoteFileID string) error
	UpdateAssistantToolBinding(ctx context.Context, assistantID, corpusID string) error
}

// APIError is a non-success response from the assistant service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("assistant api error: status %d, code %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("assistant api error: status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether retrying the request may succeed.
func (e *APIError) Transient() bool {
	return e.StatusCode == 408 || e.StatusCode == 429 || e.StatusCode >= 500
}
