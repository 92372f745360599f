package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/twinlink-server/internal/metrics"
)

// ConnKind is the transport a connection runs over.
type ConnKind string

const (
	// KindSocket is a bidirectional WebSocket connection.
	KindSocket ConnKind = "socket"
	// KindStream is a server-to-client event stream (SSE).
	KindStream ConnKind = "stream"
)

// DefaultSendBuffer is the outbound queue size used when none is configured.
const DefaultSendBuffer = 64

// Conn is an open transport session of one authenticated user.
type Conn struct {
	ID        string
	UserID    string
	Kind      ConnKind
	CreatedAt time.Time
	Events    chan *Event

	alive     atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	// conversations is guarded by Typing.mu.
	conversations map[string]struct{}
}

// NewConn constructs a live connection with a bounded outbound queue.
func NewConn(userID string, kind ConnKind, buffer int) *Conn {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	c := &Conn{
		ID:            uuid.NewString(),
		UserID:        userID,
		Kind:          kind,
		CreatedAt:     time.Now(),
		Events:        make(chan *Event, buffer),
		done:          make(chan struct{}),
		conversations: make(map[string]struct{}),
	}
	c.alive.Store(true)
	return c
}

// Alive reports whether the connection has not been closed.
func (c *Conn) Alive() bool {
	return c.alive.Load()
}

// Done is closed when the connection is torn down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close marks the connection dead. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		close(c.done)
	})
}

// Deliver enqueues an event without blocking.
// Returns false when the connection is closed or its queue is full.
func (c *Conn) Deliver(ev *Event) bool {
	if !c.Alive() {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		metrics.FramesDropped.Inc()
		return false
	}
}
