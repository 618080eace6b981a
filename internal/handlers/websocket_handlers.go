package handlers

import (
	"net/http"

	"chat-relay/internal/config"
	ws "chat-relay/internal/websocket"
	"chat-relay/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	hub      *ws.Hub
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewWebSocketHandlers(hub *ws.Hub, cfg config.WebSocketConfig) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.With("handlers.ws"),
	}
}

// HandleWebSocket upgrades the request and hands the connection to the hub.
// Sessions start unbound; the client joins a room with a join event.
func (h *WebSocketHandlers) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, h.cfg.SendBuffer, h.cfg.ReadLimit)
	if err := h.hub.Attach(client); err != nil {
		h.log.Warn("Rejecting connection: %v", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
