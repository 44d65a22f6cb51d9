package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"doc-review-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func register(t *testing.T, hub *Hub, sessionID string, buffer int) *Client {
	t.Helper()
	c := &Client{Hub: hub, SessionID: sessionID, Send: make(chan []byte, buffer)}
	hub.register <- c
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for _, x := range hub.clients[sessionID] {
			if x == c {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
	return c
}

func TestHub_PublishReachesOnlyItsSession(t *testing.T) {
	hub := startHub(t)
	a := register(t, hub, "session-a", 4)
	b := register(t, hub, "session-b", 4)

	hub.Publish("session-a", Event{Type: "criterion", Data: map[string]string{"name": "Dateiformat"}})

	select {
	case raw := <-a.Send:
		var got Event
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "criterion", got.Type)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	assert.Len(t, b.Send, 0)
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)
	c := register(t, hub, "session-a", 1)
	assert.Equal(t, 1, hub.Watchers("session-a"))

	hub.unregister <- c
	require.Eventually(t, func() bool { return hub.Watchers("session-a") == 0 }, time.Second, time.Millisecond)
	_, open := <-c.Send
	assert.False(t, open)
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := startHub(t)
	register(t, hub, "session-a", 1)

	hub.Publish("session-a", Event{Type: "x"})
	hub.Publish("session-a", Event{Type: "y"})

	require.Eventually(t, func() bool { return hub.Watchers("session-a") == 0 }, time.Second, time.Millisecond)
}
