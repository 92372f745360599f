package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/proto"
	"github.com/vovakirdan/twinlink-server/internal/store"
)

// DirectoryHandlers keeps the local relationship and membership tables in
// step with the services that own them.
type DirectoryHandlers struct {
	directory store.Directory
	log       *zerolog.Logger
}

// NewDirectoryHandlers creates directory sync handlers.
func NewDirectoryHandlers(directory store.Directory, logger *zerolog.Logger) *DirectoryHandlers {
	return &DirectoryHandlers{
		directory: directory,
		log:       logger,
	}
}

// SetConnection records the relationship status between two users.
// POST /internal/connections
func (h *DirectoryHandlers) SetConnection(c *gin.Context) {
	var req proto.ConnectionSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid connection sync request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == req.OtherUserID {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "users must differ"})
		return
	}
	status := store.ConnectionStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown connection status"})
		return
	}

	if err := h.directory.SetConnection(c.Request.Context(), req.UserID, req.OtherUserID, status); err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Str("other_user_id", req.OtherUserID).Msg("failed to store connection")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// AddParticipant adds a user to a conversation.
// POST /internal/conversations/:id/participants
func (h *DirectoryHandlers) AddParticipant(c *gin.Context) {
	var req proto.ParticipantSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid participant sync request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	conversationID := c.Param("id")
	if err := h.directory.AddParticipant(c.Request.Context(), conversationID, req.UserID); err != nil {
		h.log.Error().Err(err).Str("conversation_id", conversationID).Str("user_id", req.UserID).Msg("failed to store participant")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}
