package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, c *Conn, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-c.Events:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received on %s", kind, c.ID)
	return nil
}

func assertNoEvent(t *testing.T, c *Conn) {
	t.Helper()

	select {
	case ev := <-c.Events:
		t.Fatalf("unexpected event on %s: %+v", c.ID, ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func newSocket(userID string) *Conn {
	return NewConn(userID, KindSocket, 8)
}

func newStream(userID string) *Conn {
	return NewConn(userID, KindStream, 8)
}
