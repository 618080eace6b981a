package handlers

import (
	"net/http"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/services"
	ws "chat-relay/internal/websocket"
	"chat-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

type RoomHandlers struct {
	hub       *ws.Hub
	typingTTL time.Duration
	log       *logger.Logger
}

func NewRoomHandlers(hub *ws.Hub, typingTTL time.Duration) *RoomHandlers {
	return &RoomHandlers{
		hub:       hub,
		typingTTL: typingTTL,
		log:       logger.With("handlers.rooms"),
	}
}

func (h *RoomHandlers) ListRooms(c *gin.Context) {
	var rooms []models.RoomInfo
	if err := h.hub.Inspect(c.Request.Context(), func(s *services.RoomService) {
		rooms = s.ListRooms()
	}); err != nil {
		h.unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *RoomHandlers) GetRoomMembers(c *gin.Context) {
	roomID := c.Param("id")

	var (
		members []string
		known   bool
	)
	if err := h.hub.Inspect(c.Request.Context(), func(s *services.RoomService) {
		members, known = s.RoomMembers(roomID)
	}); err != nil {
		h.unavailable(c, err)
		return
	}
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, models.RoomInfo{RoomID: roomID, Members: members})
}

func (h *RoomHandlers) Stats(c *gin.Context) {
	stats, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		h.unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *RoomHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ClientConfig tells clients how long a typing indicator stays up.
func (h *RoomHandlers) ClientConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"typingTtlMs": h.typingTTL.Milliseconds()})
}

func (h *RoomHandlers) unavailable(c *gin.Context, err error) {
	h.log.Warn("Room query failed: %v", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
}
