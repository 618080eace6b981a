package handlers

import (
	"errors"
	"io"
	"net/http"

	"chat-relay/internal/invite"
	"chat-relay/internal/models"
	"chat-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

type CreateInviteRequest struct {
	RoomID string `json:"roomId"`
}

type InviteHandlers struct {
	invites *invite.Service
	log     *logger.Logger
}

func NewInviteHandlers(invites *invite.Service) *InviteHandlers {
	return &InviteHandlers{invites: invites, log: logger.With("handlers.invites")}
}

// CreateInvite signs an invite for the requested room, or for a new one when
// the body is empty.
func (h *InviteHandlers) CreateInvite(c *gin.Context) {
	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	inv, err := h.invites.Create(req.RoomID)
	if err != nil {
		h.log.Error("Create invite error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *InviteHandlers) ResolveInvite(c *gin.Context) {
	roomID, err := h.invites.Resolve(c.Param("token"))
	if errors.Is(err, models.ErrInvalidInvite) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invite not found or expired"})
		return
	}
	if err != nil {
		h.log.Error("Resolve invite error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": roomID})
}
