package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeCheckGroupCompleted = "REVIEW_COMPLETED"
	TypeDocumentBound       = "DOCUMENT_BOUND"
	TypeDocumentUnbound     = "DOCUMENT_UNBOUND"
	TypeTranscriptCleared   = "TRANSCRIPT_CLEARED"
)

// Event defines the contract for all review events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_BOUND").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

// Publisher delivers events to a bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Encode wraps an event in its JSON envelope.
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(BaseEvent{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.EventType(), err)
	}
	return data, nil
}

// Decode reads an envelope written by Encode.
func Decode(raw []byte) (BaseEvent, error) {
	var e BaseEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return BaseEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return BaseEvent{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}
