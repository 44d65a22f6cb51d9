package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"doc-review-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const clusterChannel = "review_board_events"

// Event is one message pushed to board subscribers.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Hub struct {
	// Registered clients per review session (several tabs may watch one session).
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out; nil on a single instance.
	rdb    *redis.Client
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no more watchers", map[string]interface{}{"session_id": client.SessionID})
	}
}

// Publish pushes an event to every watcher of the session on this instance
// and, when Redis is configured, on every other instance.
func (h *Hub) Publish(sessionID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode event", map[string]interface{}{"error": err.Error()})
		return
	}

	if h.rdb == nil {
		h.deliver(sessionID, data)
		return
	}

	// Every instance, this one included, delivers from the Redis subscription.
	payload, _ := json.Marshal(map[string]interface{}{
		"session_id": sessionID,
		"message":    json.RawMessage(data),
	})
	if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Redis publish failed, delivering locally", map[string]interface{}{"error": err.Error()})
		h.deliver(sessionID, data)
	}
}

func (h *Hub) deliver(sessionID string, data []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"session_id": sessionID})
		go func(c *Client) { h.unregister <- c }(client)
	}
}

// Watchers returns how many connections on this instance follow the session.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			SessionID string          `json:"session_id"`
			Message   json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		h.deliver(payload.SessionID, payload.Message)
	}
}
