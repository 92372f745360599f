package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/auth"
	"github.com/vovakirdan/twinlink-server/internal/config"
	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/proto"
)

var errClosedByServer = errors.New("connection closed by server")

// WSHandler upgrades HTTP connections and bridges them to core.Conn.
type WSHandler struct {
	hub  *core.Hub
	auth *auth.Service
	cfg  *config.Config
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, auth: authService, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	// Credentials on the upgrade request are checked before accepting it;
	// otherwise the first frame must authenticate.
	var identity *auth.Identity
	token := h.auth.TokenFromRequest(r)
	if token != "" || r.Header.Get("Authorization") != "" {
		id, err := h.auth.ValidateToken(token)
		if err != nil {
			h.log.Debug().Err(err).Msg("ws upgrade rejected")
			writeJSON(w, stdhttp.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}
		identity = id
	}

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	ctx := r.Context()

	if identity == nil {
		identity, err = h.handshake(ctx, conn)
		if err != nil {
			h.log.Debug().Err(err).Msg("ws handshake failed")
			_ = wsjson.Write(ctx, conn, proto.NewError(core.ErrCodeUnauthorized, "authentication required"))
			conn.Close(websocket.StatusPolicyViolation, "unauthorized")
			return
		}
	}

	client := core.NewConn(identity.UserID, core.KindSocket, h.cfg.SendBuffer)
	if err := h.hub.Attach(client); err != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.Detach(client)

	logger := h.log.With().Str("user_id", client.UserID).Str("connection_id", client.ID).Logger()
	logger.Debug().Msg("ws connection established")

	if err := wsjson.Write(ctx, conn, proto.Ready{
		Event:        proto.EventReady,
		Protocol:     proto.ProtocolVersion,
		UserID:       client.UserID,
		ConnectionID: client.ID,
	}); err != nil {
		logger.Warn().Err(err).Msg("write ready")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &logger)
	}()
	go func() {
		errCh <- h.keepAlive(ctx, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutines
	<-errCh
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
	case errors.Is(err, errClosedByServer):
		status, reason = websocket.StatusGoingAway, "server shutting down"
	default:
		switch s := websocket.CloseStatus(err); s {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		case -1:
			status, reason = websocket.StatusInternalError, "transport error"
			logger.Warn().Err(err).Msg("ws connection closed with error")
		default:
			status, reason = s, "transport error"
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if len(h.cfg.AllowedOrigins) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
}

// handshake waits for an auth frame carrying the token.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (*auth.Identity, error) {
	timeout := h.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(hctx, conn, &inbound); err != nil {
		return nil, fmt.Errorf("read auth frame: %w", err)
	}
	if inbound.Event != proto.EventAuth {
		return nil, fmt.Errorf("%w: expected %q frame, got %q", auth.ErrMissingToken, proto.EventAuth, inbound.Event)
	}
	return h.auth.ValidateToken(inbound.Token)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn, logger *zerolog.Logger) error {
	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("read ws frame")
			return err
		}

		if !limiter.Allow() {
			logger.Warn().Msg("ws rate limit exceeded")
			client.Deliver(core.ErrorEvent(core.ErrRateLimited))
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			logger.Warn().Err(err).Msg("malformed ws frame")
			client.Deliver(core.ErrorEvent(fmt.Errorf("%w: invalid json", core.ErrMalformedMessage)))
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			logger.Warn().Str("event", inbound.Event).Str("code", protoErr.Code).Msg("rejected ws frame")
			client.Deliver(core.ErrorEvent(protoErr))
			continue
		}
		if cmd == nil {
			continue
		}

		if err := h.hub.Dispatch(ctx, client, cmd); err != nil {
			logger.Warn().Err(err).Str("event", inbound.Event).Msg("command failed")
			client.Deliver(core.ErrorEvent(err))
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn, logger *zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			out, ok := outboundFromEvent(event)
			if !ok {
				continue
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				logger.Warn().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			// The close frame must go out before the read context is cancelled,
			// otherwise the peer only sees the transport drop.
			if err := conn.Close(websocket.StatusGoingAway, "server shutting down"); err != nil {
				logger.Debug().Err(err).Msg("close ws on shutdown")
			}
			return errClosedByServer
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// keepAlive pings the peer so dead connections are detected and intermediaries
// keep the socket open.
func (h *WSHandler) keepAlive(ctx context.Context, conn *websocket.Conn) error {
	interval := h.cfg.KeepAliveInterval
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, interval)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
