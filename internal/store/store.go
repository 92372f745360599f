package store

import "context"

// ConnectionStatus is the state of a relationship between two users.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionBlocked  ConnectionStatus = "blocked"
)

// Valid reports whether s is a known status.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionPending, ConnectionAccepted, ConnectionBlocked:
		return true
	default:
		return false
	}
}

// RelationshipStore answers whether two users may reach each other.
type RelationshipStore interface {
	// AreConnected reports an accepted relationship in either direction.
	AreConnected(ctx context.Context, userID, otherID string) (bool, error)

	// SetConnection creates or updates the relationship from userID to otherID.
	SetConnection(ctx context.Context, userID, otherID string, status ConnectionStatus) error
}

// ConversationStore answers conversation membership questions.
type ConversationStore interface {
	// IsParticipant checks if the user takes part in the conversation.
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)

	// AddParticipant adds a user to a conversation. Adding twice is a no-op.
	AddParticipant(ctx context.Context, conversationID, userID string) error
}

// Directory aggregates the lookups the realtime layer needs.
type Directory interface {
	RelationshipStore
	ConversationStore

	// Close closes the underlying database connection.
	Close() error
}
