package core

// Command is an action requested by a socket connection.
// Implementations: the four Signal types, JoinConversation,
// LeaveConversation and SetTyping.
type Command interface {
	command()
}

// JoinConversation subscribes the connection to a conversation's typing updates.
type JoinConversation struct {
	ConversationID string
}

// LeaveConversation unsubscribes the connection from a conversation.
type LeaveConversation struct {
	ConversationID string
}

// SetTyping broadcasts the sender's typing state to a conversation.
type SetTyping struct {
	ConversationID string
	IsTyping       bool
}

func (JoinConversation) command()  {}
func (LeaveConversation) command() {}
func (SetTyping) command()         {}
