package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/metrics"
)

// MembershipChecker answers whether a user takes part in a conversation.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// Typing broadcasts ephemeral is-typing state to the connections subscribed
// to a conversation. Each notification is an absolute state; there is no
// history and no ordering across senders.
type Typing struct {
	mu      sync.Mutex
	rooms   map[string]*Group
	members MembershipChecker
	log     *zerolog.Logger
}

// NewTyping builds a notifier. members may be nil to skip participation checks.
func NewTyping(members MembershipChecker, logger *zerolog.Logger) *Typing {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Typing{
		rooms:   make(map[string]*Group),
		members: members,
		log:     logger,
	}
}

// Join subscribes c to conversationID. Joining twice is a no-op.
func (t *Typing) Join(ctx context.Context, c *Conn, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversationId is required", ErrMalformedMessage)
	}
	if err := t.checkParticipant(ctx, conversationID, c.UserID); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[conversationID]
	if !ok {
		room = NewGroup(conversationID)
		t.rooms[conversationID] = room
	}
	room.Add(c)
	c.conversations[conversationID] = struct{}{}
	return nil
}

// Leave unsubscribes c from conversationID. Returns true if it was subscribed.
func (t *Typing) Leave(c *Conn, conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.leaveLocked(c, conversationID)
}

// Drop unsubscribes c from every conversation.
func (t *Typing) Drop(c *Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for conversationID := range c.conversations {
		t.leaveLocked(c, conversationID)
	}
}

func (t *Typing) leaveLocked(c *Conn, conversationID string) bool {
	delete(c.conversations, conversationID)
	room, ok := t.rooms[conversationID]
	if !ok {
		return false
	}
	removed := room.Remove(c)
	if room.Empty() {
		delete(t.rooms, conversationID)
	}
	return removed
}

// Subscribers returns the number of connections subscribed to conversationID.
func (t *Typing) Subscribers(conversationID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if room, ok := t.rooms[conversationID]; ok {
		return room.Len()
	}
	return 0
}

// Notify sends from's typing state to every subscribed connection of the
// other participants and returns how many received it.
func (t *Typing) Notify(ctx context.Context, from, conversationID string, isTyping bool) (int, error) {
	if from == "" || conversationID == "" {
		return 0, fmt.Errorf("%w: typing needs a sender and conversationId", ErrMalformedMessage)
	}
	if err := t.checkParticipant(ctx, conversationID, from); err != nil {
		return 0, err
	}

	t.mu.Lock()
	var targets []*Conn
	if room, ok := t.rooms[conversationID]; ok {
		targets = room.Snapshot()
	}
	t.mu.Unlock()

	ev := &Event{
		Kind:   EventTyping,
		From:   from,
		Typing: &TypingEvent{ConversationID: conversationID, IsTyping: isTyping},
	}
	delivered := 0
	for _, c := range targets {
		if c.UserID == from {
			continue
		}
		if c.Deliver(ev) {
			delivered++
		}
	}

	metrics.Typing.Inc()
	t.log.Debug().
		Str("user_id", from).
		Str("conversation_id", conversationID).
		Bool("is_typing", isTyping).
		Int("delivered", delivered).
		Msg("typing state broadcast")
	return delivered, nil
}

func (t *Typing) checkParticipant(ctx context.Context, conversationID, userID string) error {
	if t.members == nil {
		return nil
	}
	ok, err := t.members.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}
