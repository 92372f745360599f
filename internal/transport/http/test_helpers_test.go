package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/auth"
	"github.com/vovakirdan/twinlink-server/internal/config"
	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/proto"
	"github.com/vovakirdan/twinlink-server/internal/store"
)

const (
	testSecret      = "test-secret"
	testInternalKey = "internal-key"
)

type testEnv struct {
	hub  *core.Hub
	auth *auth.Service
	cfg  *config.Config
	ts   *httptest.Server
}

func newTestConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.JWTSecret = testSecret
	cfg.InternalAPIKey = testInternalKey
	cfg.HandshakeTimeout = time.Second
	return cfg
}

// startTestServer serves a fresh hub over httptest.
func startTestServer(t *testing.T, cfg config.Config, opts core.HubOptions) *testEnv {
	t.Helper()
	return startTestServerWithDirectory(t, cfg, opts, nil)
}

// startTestServerWithDirectory also mounts the directory sync routes.
func startTestServerWithDirectory(t *testing.T, cfg config.Config, opts core.HubOptions, directory store.Directory) *testEnv {
	t.Helper()

	disabledLogger := zerolog.New(nil)
	hub := core.NewHub(&disabledLogger, opts)
	authService := createTestAuthService(t, cfg.JWTSecret)

	server := NewServer(hub, authService, directory, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	// Runs before ts.Close so long-lived handlers return.
	t.Cleanup(hub.Shutdown)

	return &testEnv{hub: hub, auth: authService, cfg: &cfg, ts: ts}
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret: []byte(jwtSecret),
		TTL:    time.Hour,
	}
	return auth.NewService(jwtConfig, "twin_session")
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.auth.IssueToken(userID, "")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

// dial opens an authenticated socket and consumes the ready frame.
func (e *testEnv) dial(ctx context.Context, t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL()+"?token="+e.token(t, userID), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userID, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	ready := readFrame(ctx, t, conn)
	if ready.Event != proto.EventReady || ready.UserID != userID || ready.ConnectionID == "" {
		t.Fatalf("expected ready frame for %s, got %+v", userID, ready)
	}
	return conn
}

// frame is the union of every server-to-client field.
type frame struct {
	Event          string          `json:"event"`
	From           string          `json:"from"`
	Type           string          `json:"type"`
	Offer          json.RawMessage `json:"offer"`
	Answer         json.RawMessage `json:"answer"`
	Candidate      json.RawMessage `json:"candidate"`
	Code           string          `json:"code"`
	ConversationID string          `json:"conversationId"`
	IsTyping       bool            `json:"isTyping"`
	UserID         string          `json:"userId"`
	ConnectionID   string          `json:"connectionId"`
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// syncConn round-trips an unknown event. Frames of one connection are handled in
// order, so everything sent before has been processed once the error returns.
func syncConn(ctx context.Context, t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(ctx, t, conn, proto.Inbound{Event: "sync"})
	f := readFrame(ctx, t, conn)
	if f.Event != proto.EventError || f.Code != core.ErrCodeUnknownEvent {
		t.Fatalf("expected unknown_event error while syncing, got %+v", f)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
