package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Hub ties the registry to the relay, the fan-out channel and the typing
// notifier. Transports attach connections to it and dispatch their commands.
type Hub struct {
	Registry *Registry
	Relay    *Relay
	Fanout   *Fanout
	Typing   *Typing
	log      *zerolog.Logger
}

// HubOptions configures optional collaborators of a Hub.
type HubOptions struct {
	Policy  Policy
	Members MembershipChecker
}

// NewHub creates a hub with a fresh registry.
func NewHub(logger *zerolog.Logger, opts HubOptions) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	registry := NewRegistry(logger)
	return &Hub{
		Registry: registry,
		Relay:    NewRelay(registry, opts.Policy, logger),
		Fanout:   NewFanout(registry, logger),
		Typing:   NewTyping(opts.Members, logger),
		log:      logger,
	}
}

// Attach registers an authenticated connection. Once the hub is shut down
// the connection is closed and ErrShuttingDown is returned.
func (h *Hub) Attach(c *Conn) error {
	if err := h.Registry.Register(c.UserID, c); err != nil {
		c.Close()
		return err
	}
	return nil
}

// Detach tears a connection down: it leaves every conversation, is removed
// from its routing group and is closed. Safe to call more than once.
func (h *Hub) Detach(c *Conn) {
	h.Typing.Drop(c)
	h.Registry.Unregister(c.UserID, c)
	c.Close()
}

// Dispatch executes a command sent by c. Errors are meant for the sender only.
func (h *Hub) Dispatch(ctx context.Context, c *Conn, cmd Command) error {
	switch cmd := cmd.(type) {
	case Signal:
		_, err := h.Relay.Relay(ctx, c.UserID, cmd)
		return err
	case JoinConversation:
		return h.Typing.Join(ctx, c, cmd.ConversationID)
	case LeaveConversation:
		h.Typing.Leave(c, cmd.ConversationID)
		return nil
	case SetTyping:
		_, err := h.Typing.Notify(ctx, c.UserID, cmd.ConversationID, cmd.IsTyping)
		return err
	default:
		return fmt.Errorf("%w: unsupported command %T", ErrMalformedMessage, cmd)
	}
}

// Publish forwards a domain event to the fan-out channel.
func (h *Hub) Publish(ev DomainEvent) (int, error) {
	return h.Fanout.Publish(ev)
}

// Shutdown closes every live connection; their transports exit on Conn.Done.
func (h *Hub) Shutdown() {
	users, conns := h.Registry.Stats()
	h.Registry.CloseAll()
	h.log.Info().Int("users", users).Int("connections", conns).Msg("realtime hub shut down")
}
