package proto

import "encoding/json"

// WebSocket event names.
const (
	ProtocolVersion = 1

	EventAuth              = "auth"
	EventCallRequest       = "call-request"
	EventCallAccepted      = "call-accepted"
	EventICECandidate      = "ice-candidate"
	EventCallEnd           = "call-end"
	EventCallEnded         = "call-ended"
	EventTyping            = "typing"
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventReady             = "ready"
	EventError             = "error"
)

// StreamTypePing is the keep-alive frame type on the event stream.
const StreamTypePing = "ping"

// Inbound is the flat envelope for messages coming from the client.
// Only the fields of the named event are meaningful.
type Inbound struct {
	Event          string          `json:"event"`
	To             string          `json:"to,omitempty"`
	Type           string          `json:"type,omitempty"`
	Offer          json.RawMessage `json:"offer,omitempty"`
	Answer         json.RawMessage `json:"answer,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	IsTyping       *bool           `json:"isTyping,omitempty"`
	Token          string          `json:"token,omitempty"`
}

// OutboundSignal is a relayed call-signaling message with the sender injected.
type OutboundSignal struct {
	Event     string          `json:"event"`
	From      string          `json:"from"`
	Type      string          `json:"type,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// OutboundTyping notifies about a participant's typing state.
type OutboundTyping struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversationId"`
	From           string `json:"from"`
	IsTyping       bool   `json:"isTyping"`
}

// Ready confirms a completed handshake.
type Ready struct {
	Event        string `json:"event"`
	Protocol     int    `json:"protocol"`
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds an error frame.
func NewError(code, msg string) Error {
	return Error{Event: EventError, Code: code, Message: msg}
}

// StreamFrame is the JSON carried by one `data:` line of the event stream.
type StreamFrame struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// PingFrame is the keep-alive frame.
var PingFrame = StreamFrame{Type: StreamTypePing}

// Target addresses a published domain event.
type Target struct {
	UserID    string `json:"userId,omitempty"`
	Broadcast bool   `json:"broadcast,omitempty"`
}

// PublishRequest is a domain event handed to the realtime layer by another
// service, over HTTP, NATS or Redis.
type PublishRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Target  Target          `json:"target"`
}

// PublishResponse reports how many streams received a published event.
type PublishResponse struct {
	Delivered int `json:"delivered"`
}

// TypingRequest is the REST body for typing updates.
type TypingRequest struct {
	IsTyping *bool `json:"isTyping" binding:"required"`
}

// Presence reports whether a user has live connections.
type Presence struct {
	UserID      string `json:"userId"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

// ConnectionSyncRequest mirrors a relationship change from the owning service.
type ConnectionSyncRequest struct {
	UserID      string `json:"userId" binding:"required"`
	OtherUserID string `json:"otherUserId" binding:"required"`
	Status      string `json:"status" binding:"required"`
}

// ParticipantSyncRequest mirrors a conversation membership change.
type ParticipantSyncRequest struct {
	UserID string `json:"userId" binding:"required"`
}
