package handler

import (
	"doc-review-be/internal/pkg/logger"
	"doc-review-be/internal/pkg/serverutils"
	"doc-review-be/internal/service"
	internalWS "doc-review-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type BoardHandler struct {
	service   service.IReviewService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewBoardHandler(svc service.IReviewService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *BoardHandler {
	return &BoardHandler{
		service:   svc,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *BoardHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/review/v1/ws/board", serverutils.SessionMiddleware(h.jwtSecret), h.ServeWs)
}

// ServeWs upgrades the request, sends the current board once and then
// streams updates while the connection is open.
func (h *BoardHandler) ServeWs(c *fiber.Ctx) error {
	sessionID, _ := c.Locals(serverutils.SessionLocal).(string)

	board, err := h.service.GetBoard(c.UserContext(), sessionID)
	if err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("BoardHandler", "Starting board stream", map[string]interface{}{"session_id": sessionID})
		if err := conn.WriteJSON(internalWS.Event{Type: "board", Data: board}); err != nil {
			h.logger.Warn("BoardHandler", "Failed to send initial board", map[string]interface{}{"error": err.Error()})
			conn.Close()
			return
		}
		internalWS.ServeWs(h.hub, conn, sessionID)
		h.logger.Info("BoardHandler", "Board stream ended", map[string]interface{}{"session_id": sessionID})
	})(c)
}
