package core

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/metrics"
)

// Registry maps user IDs to their routing groups.
// A user may hold any number of concurrent connections.
// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]*Group
	closed bool
	log    *zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		groups: make(map[string]*Group),
		log:    logger,
	}
}

// Register adds the connection to the user's routing group.
// After CloseAll it refuses with ErrShuttingDown.
func (r *Registry) Register(userID string, c *Conn) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrShuttingDown
	}
	group, ok := r.groups[userID]
	if !ok {
		group = NewGroup(userID)
		r.groups[userID] = group
	}
	added := group.Add(c)
	size := group.Len()
	r.mu.Unlock()

	if !added {
		return nil
	}
	metrics.Connections.WithLabelValues(string(c.Kind)).Inc()
	r.log.Debug().
		Str("user_id", userID).
		Str("connection_id", c.ID).
		Str("kind", string(c.Kind)).
		Int("group_size", size).
		Msg("connection registered")
	return nil
}

// Unregister removes the connection and drops the group once empty.
// Unregistering an absent connection is a no-op.
func (r *Registry) Unregister(userID string, c *Conn) {
	r.mu.Lock()
	group, ok := r.groups[userID]
	removed := ok && group.Remove(c)
	if removed && group.Empty() {
		delete(r.groups, userID)
	}
	r.mu.Unlock()

	if !removed {
		return
	}
	metrics.Connections.WithLabelValues(string(c.Kind)).Dec()
	r.log.Debug().
		Str("user_id", userID).
		Str("connection_id", c.ID).
		Str("kind", string(c.Kind)).
		Msg("connection unregistered")
}

// Lookup returns the user's live connections; the slice may be empty.
func (r *Registry) Lookup(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.groups[userID]
	if !ok {
		return nil
	}
	return group.Snapshot()
}

// All returns every live connection of the given kind.
func (r *Registry) All(kind ConnKind) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Conn
	for _, group := range r.groups {
		for _, c := range group.Snapshot() {
			if c.Kind == kind {
				out = append(out, c)
			}
		}
	}
	return out
}

// Online returns how many live connections the user holds.
func (r *Registry) Online(userID string) int {
	return len(r.Lookup(userID))
}

// Stats returns the number of users and connections currently registered.
func (r *Registry) Stats() (users, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, group := range r.groups {
		conns += group.Len()
	}
	return len(r.groups), conns
}

// CloseAll closes every registered connection, empties the registry and
// refuses later registrations. Used on server shutdown; transports observe
// Conn.Done and exit.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	groups := r.groups
	r.groups = make(map[string]*Group)
	r.mu.Unlock()

	for _, group := range groups {
		for c := range group.conns {
			c.Close()
			metrics.Connections.WithLabelValues(string(c.Kind)).Dec()
		}
	}
}
