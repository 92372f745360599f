package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/proto"
)

const testOffer = `{"type":"offer","sdp":"v=0 o=- 46117 2 IN IP4 127.0.0.1"}`

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketCallRequestSingleConnection(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(ctx, t, "A")
	connB := env.dial(ctx, t, "B")

	send(ctx, t, connA, proto.Inbound{
		Event: proto.EventCallRequest,
		To:    "B",
		Type:  "video",
		Offer: json.RawMessage(testOffer),
	})

	got := readFrame(ctx, t, connB)
	if got.Event != proto.EventCallRequest || got.From != "A" || got.Type != "video" {
		t.Fatalf("unexpected call-request: %+v", got)
	}
	assertJSONEqual(t, testOffer, got.Offer)
}

func TestWebSocketCallScenarioTwoDevices(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(ctx, t, "A")
	phone := env.dial(ctx, t, "B")
	laptop := env.dial(ctx, t, "B")

	send(ctx, t, connA, proto.Inbound{
		Event: proto.EventCallRequest,
		To:    "B",
		Type:  "voice",
		Offer: json.RawMessage(testOffer),
	})
	for name, conn := range map[string]*websocket.Conn{"phone": phone, "laptop": laptop} {
		got := readFrame(ctx, t, conn)
		if got.Event != proto.EventCallRequest || got.From != "A" || got.Type != "voice" {
			t.Fatalf("%s: unexpected call-request: %+v", name, got)
		}
	}

	answer := `{"type":"answer","sdp":"v=0"}`
	send(ctx, t, phone, proto.Inbound{Event: proto.EventCallAccepted, To: "A", Answer: json.RawMessage(answer)})

	got := readFrame(ctx, t, connA)
	if got.Event != proto.EventCallAccepted || got.From != "B" {
		t.Fatalf("unexpected call-accepted: %+v", got)
	}
	assertJSONEqual(t, answer, got.Answer)

	send(ctx, t, connA, proto.Inbound{Event: proto.EventCallEnd, To: "B"})
	for name, conn := range map[string]*websocket.Conn{"phone": phone, "laptop": laptop} {
		got := readFrame(ctx, t, conn)
		if got.Event != proto.EventCallEnded || got.From != "A" {
			t.Fatalf("%s: expected call-ended from A, got %+v", name, got)
		}
	}
}

func TestWebSocketCallRequestToOfflineUserIsSilent(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(ctx, t, "A")
	send(ctx, t, connA, proto.Inbound{
		Event: proto.EventCallRequest,
		To:    "nobody",
		Type:  "voice",
		Offer: json.RawMessage(testOffer),
	})

	// The next frame A sees is the sync error, not a routing report.
	syncConn(ctx, t, connA)
}

func TestWebSocketICECandidateAfterTargetDisconnected(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(ctx, t, "A")
	connB := env.dial(ctx, t, "B")

	connB.Close(websocket.StatusNormalClosure, "bye")
	waitFor(t, "B to unregister", func() bool { return env.hub.Registry.Online("B") == 0 })

	send(ctx, t, connA, proto.Inbound{
		Event:     proto.EventICECandidate,
		To:        "B",
		Candidate: json.RawMessage(`{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 54400 typ host"}`),
	})
	syncConn(ctx, t, connA)
}

func TestWebSocketMalformedErrorGoesToSenderOnly(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(ctx, t, "A")
	connB := env.dial(ctx, t, "B")

	// call-accepted without an answer.
	send(ctx, t, connA, proto.Inbound{Event: proto.EventCallAccepted, To: "B"})
	got := readFrame(ctx, t, connA)
	if got.Event != proto.EventError || got.Code != core.ErrCodeMalformed {
		t.Fatalf("expected malformed_message error, got %+v", got)
	}

	// Invalid JSON keeps the connection open.
	if err := connA.Write(ctx, websocket.MessageText, []byte(`{"event":`)); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	got = readFrame(ctx, t, connA)
	if got.Code != core.ErrCodeMalformed {
		t.Fatalf("expected malformed_message for invalid json, got %+v", got)
	}

	// B's first frame is the valid call-end, not an error.
	send(ctx, t, connA, proto.Inbound{Event: proto.EventCallEnd, To: "B"})
	got = readFrame(ctx, t, connB)
	if got.Event != proto.EventCallEnded || got.From != "A" {
		t.Fatalf("expected call-ended on B, got %+v", got)
	}
}

func TestWebSocketTyping(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(ctx, t, "A")
	connB := env.dial(ctx, t, "B")

	for _, conn := range []*websocket.Conn{connA, connB} {
		send(ctx, t, conn, proto.Inbound{Event: proto.EventJoinConversation, ConversationID: "conv-1"})
		syncConn(ctx, t, conn)
	}

	isTyping := true
	send(ctx, t, connA, proto.Inbound{Event: proto.EventTyping, ConversationID: "conv-1", IsTyping: &isTyping})

	got := readFrame(ctx, t, connB)
	if got.Event != proto.EventTyping || got.From != "A" || got.ConversationID != "conv-1" || !got.IsTyping {
		t.Fatalf("unexpected typing frame: %+v", got)
	}

	// The sender does not hear its own state.
	syncConn(ctx, t, connA)

	send(ctx, t, connA, proto.Inbound{Event: proto.EventTyping, ConversationID: "conv-1"})
	got = readFrame(ctx, t, connA)
	if got.Code != core.ErrCodeMalformed {
		t.Fatalf("expected malformed_message without isTyping, got %+v", got)
	}
}

func TestWebSocketRejectsInvalidTokenBeforeUpgrade(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, env.wsURL()+"?token=invalid", nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}

	wrong, err := makeJWT("other-secret", "A", time.Minute)
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+wrong)
	_, resp, err = websocket.Dial(ctx, env.wsURL(), &websocket.DialOptions{HTTPHeader: header})
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a token signed with another secret, got resp=%+v err=%v", resp, err)
	}
	if env.hub.Registry.Online("A") != 0 {
		t.Fatalf("rejected connection must not be registered")
	}
}

func TestWebSocketAuthFrame(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, env.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	token, err := makeJWT(testSecret, "A", time.Minute)
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}
	send(ctx, t, conn, proto.Inbound{Event: proto.EventAuth, Token: token})

	got := readFrame(ctx, t, conn)
	if got.Event != proto.EventReady || got.UserID != "A" {
		t.Fatalf("expected ready frame, got %+v", got)
	}
	if env.hub.Registry.Online("A") != 1 {
		t.Fatalf("expected A to be registered once")
	}
}

func TestWebSocketAuthFrameInvalid(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, env.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, proto.Inbound{Event: proto.EventAuth, Token: "invalid"})

	got := readFrame(ctx, t, conn)
	if got.Event != proto.EventError || got.Code != core.ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", got)
	}

	var next frame
	err = wsjson.Read(ctx, conn, &next)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestWebSocketShutdownClosesSockets(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(ctx, t, "A")
	env.hub.Shutdown()

	var next frame
	err := wsjson.Read(ctx, conn, &next)
	if err == nil {
		t.Fatalf("expected the socket to close, got %+v", next)
	}
	if status := websocket.CloseStatus(err); status != websocket.StatusGoingAway {
		t.Fatalf("expected going away close, got status %d: %v", status, err)
	}
	waitFor(t, "A to unregister", func() bool { return env.hub.Registry.Online("A") == 0 })
}

func TestWebSocketRefusedAfterShutdown(t *testing.T) {
	env := startTestServer(t, newTestConfig(), core.HubOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env.hub.Shutdown()

	conn, _, err := websocket.Dial(ctx, env.wsURL()+"?token="+env.token(t, "A"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var next frame
	err = wsjson.Read(ctx, conn, &next)
	if err == nil {
		t.Fatalf("expected no ready frame after shutdown, got %+v", next)
	}
	if status := websocket.CloseStatus(err); status != websocket.StatusGoingAway {
		t.Fatalf("expected going away close, got status %d: %v", status, err)
	}
	if n := env.hub.Registry.Online("A"); n != 0 {
		t.Fatalf("expected no registered connections, got %d", n)
	}
}

func makeJWT(secret, sub string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func assertJSONEqual(t *testing.T, want string, got json.RawMessage) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("unmarshal got %q: %v", got, err)
	}
	wb, _ := json.Marshal(w)
	gb, _ := json.Marshal(g)
	if string(wb) != string(gb) {
		t.Fatalf("payload mismatch: want %s, got %s", wb, gb)
	}
}
