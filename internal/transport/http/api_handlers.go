package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/events"
	"github.com/vovakirdan/twinlink-server/internal/proto"
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub: hub,
		log: logger,
	}
}

// SetTyping broadcasts the caller's typing state to a conversation.
// POST /api/conversations/:id/typing
func (h *APIHandlers) SetTyping(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req proto.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid typing request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	conversationID := c.Param("id")
	delivered, err := h.hub.Typing.Notify(c.Request.Context(), userID, conversationID, *req.IsTyping)
	if err != nil {
		h.respondCoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, proto.PublishResponse{Delivered: delivered})
}

// PublishEvent accepts a domain event from another backend service.
// POST /internal/events
func (h *APIHandlers) PublishEvent(c *gin.Context) {
	var req proto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid publish request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ev, err := events.FromRequest(req)
	if err != nil {
		h.respondCoreError(c, err)
		return
	}

	delivered, err := h.hub.Publish(ev)
	if err != nil {
		h.respondCoreError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, proto.PublishResponse{Delivered: delivered})
}

// Presence reports whether a user has live connections.
// GET /api/presence/:userId
func (h *APIHandlers) Presence(c *gin.Context) {
	userID := c.Param("userId")
	n := h.hub.Registry.Online(userID)
	c.JSON(http.StatusOK, proto.Presence{
		UserID:      userID,
		Online:      n > 0,
		Connections: n,
	})
}

func (h *APIHandlers) respondCoreError(c *gin.Context, err error) {
	ce := core.ToCoreError(err)
	switch {
	case errors.Is(err, core.ErrMalformedMessage):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ce.Message})
	case errors.Is(err, core.ErrNotParticipant), errors.Is(err, core.ErrSignalForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: ce.Message})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
