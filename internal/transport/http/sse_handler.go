package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/config"
	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/proto"
)

// SSEHandler serves the server-sent event stream of domain events.
type SSEHandler struct {
	hub *core.Hub
	cfg *config.Config
	log *zerolog.Logger
}

// NewSSEHandler creates a new event stream handler.
func NewSSEHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *SSEHandler {
	return &SSEHandler{hub: hub, cfg: cfg, log: logger}
}

// Stream keeps the response open and writes one `data:` frame per event.
// GET /api/events
func (h *SSEHandler) Stream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	conn := core.NewConn(userID, core.KindStream, h.cfg.SendBuffer)
	if err := h.hub.Attach(conn); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "server shutting down"})
		return
	}
	defer h.hub.Detach(conn)

	logger := h.log.With().Str("user_id", userID).Str("connection_id", conn.ID).Logger()

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	logger.Debug().Msg("event stream opened")

	interval := h.cfg.KeepAliveInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("event stream closed by client")
			return
		case <-conn.Done():
			logger.Debug().Msg("event stream closed by server")
			return
		case <-ticker.C:
			if err := writeFrame(w, proto.PingFrame); err != nil {
				logger.Warn().Err(err).Msg("write keep-alive")
				return
			}
		case event := <-conn.Events:
			frame, ok := streamFrameFromEvent(event)
			if !ok {
				continue
			}
			if err := writeFrame(w, frame); err != nil {
				logger.Warn().Err(err).Str("type", frame.Type).Msg("write event frame")
				return
			}
		}
	}
}

func writeFrame(w gin.ResponseWriter, frame proto.StreamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
