package core

import (
	"encoding/json"
	"time"
)

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventSignal relays a call-signaling message to its target.
	EventSignal EventKind = iota
	// EventDomain delivers a server-originated domain event to a stream.
	EventDomain
	// EventTyping notifies a conversation about a participant's typing state.
	EventTyping
	// EventError notifies a connection about a rejected command.
	EventError
)

// Event is queued on a connection to describe what happened in the system.
// Events are shared between recipients and must not be mutated after Deliver.
type Event struct {
	Kind   EventKind
	From   string       // sender user ID for signal and typing events
	Signal Signal       // EventSignal
	Domain *DomainEvent // EventDomain
	Typing *TypingEvent // EventTyping
	Error  *CoreError   // EventError
}

// PingType is reserved for stream keep-alive frames.
const PingType = "ping"

// Scope selects the recipients of a domain event.
type Scope struct {
	UserID    string
	Broadcast bool
}

// DomainEvent is produced outside the realtime layer, e.g. after a new
// activity, comment or match is stored.
type DomainEvent struct {
	Type      string
	Payload   json.RawMessage
	Scope     Scope
	CreatedAt time.Time
}

// TypingEvent is the absolute typing state of one participant.
type TypingEvent struct {
	ConversationID string
	IsTyping       bool
}

// ErrorEvent builds an error notification for the sender of a rejected command.
func ErrorEvent(err error) *Event {
	return &Event{Kind: EventError, Error: ToCoreError(err)}
}
