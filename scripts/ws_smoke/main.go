package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/twinlink-server/internal/auth"
	"github.com/vovakirdan/twinlink-server/internal/proto"
)

// ws_smoke runs one call setup between two users against a live server.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type frame struct {
	Event        string          `json:"event"`
	From         string          `json:"from"`
	Code         string          `json:"code"`
	Message      string          `json:"message"`
	Offer        json.RawMessage `json:"offer"`
	Answer       json.RawMessage `json:"answer"`
	UserID       string          `json:"userId"`
	ConnectionID string          `json:"connectionId"`
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	secret := flag.String("secret", "change-me", "JWT secret shared with the server")
	caller := flag.String("caller", "smoke-caller", "caller user id")
	callee := flag.String("callee", "smoke-callee", "callee user id")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	jwtConfig := &auth.JWTConfig{Secret: []byte(*secret), TTL: time.Minute}

	dial := func(userID string) (*websocket.Conn, error) {
		token, err := auth.GenerateToken(jwtConfig, userID, "")
		if err != nil {
			return nil, fmt.Errorf("token for %s: %w", userID, err)
		}
		conn, _, err := websocket.Dial(ctx, *addr+"?token="+url.QueryEscape(token), nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", userID, err)
		}
		ready, err := expect(ctx, conn, proto.EventReady)
		if err != nil {
			conn.Close(websocket.StatusNormalClosure, "bye")
			return nil, err
		}
		fmt.Printf("%s connected as %s\n", ready.UserID, ready.ConnectionID)
		return conn, nil
	}

	a, err := dial(*caller)
	if err != nil {
		return err
	}
	defer a.Close(websocket.StatusNormalClosure, "bye")

	b, err := dial(*callee)
	if err != nil {
		return err
	}
	defer b.Close(websocket.StatusNormalClosure, "bye")

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	if err := wsjson.Write(ctx, a, proto.Inbound{Event: proto.EventCallRequest, To: *callee, Type: "voice", Offer: offer}); err != nil {
		return fmt.Errorf("send call-request: %w", err)
	}
	if _, err := expect(ctx, b, proto.EventCallRequest); err != nil {
		return err
	}

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	if err := wsjson.Write(ctx, b, proto.Inbound{Event: proto.EventCallAccepted, To: *caller, Answer: answer}); err != nil {
		return fmt.Errorf("send call-accepted: %w", err)
	}
	if _, err := expect(ctx, a, proto.EventCallAccepted); err != nil {
		return err
	}

	if err := wsjson.Write(ctx, a, proto.Inbound{Event: proto.EventCallEnd, To: *callee}); err != nil {
		return fmt.Errorf("send call-end: %w", err)
	}
	if _, err := expect(ctx, b, proto.EventCallEnded); err != nil {
		return err
	}

	fmt.Println("signaling round trip ok")
	return nil
}

func expect(ctx context.Context, conn *websocket.Conn, event string) (frame, error) {
	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		return f, fmt.Errorf("read %s: %w", event, err)
	}
	if f.Event == proto.EventError {
		return f, fmt.Errorf("server error %s: %s", f.Code, f.Message)
	}
	if f.Event != event {
		return f, fmt.Errorf("expected %s, got %s", event, f.Event)
	}
	fmt.Printf("received %s from %q\n", f.Event, f.From)
	return f, nil
}
