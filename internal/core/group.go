package core

// Group is a set of connections sharing a routing key: a user ID for
// routing groups, a conversation ID for typing subscriptions.
// Group is not safe for concurrent use; owners guard it.
type Group struct {
	Key   string
	conns map[*Conn]struct{}
}

// NewGroup constructs an empty group.
func NewGroup(key string) *Group {
	return &Group{
		Key:   key,
		conns: make(map[*Conn]struct{}),
	}
}

// Add inserts a connection. Returns true if newly added.
func (g *Group) Add(c *Conn) bool {
	if _, exists := g.conns[c]; exists {
		return false
	}
	g.conns[c] = struct{}{}
	return true
}

// Remove deletes a connection. Returns true if removed.
func (g *Group) Remove(c *Conn) bool {
	if _, exists := g.conns[c]; !exists {
		return false
	}
	delete(g.conns, c)
	return true
}

// Len returns the number of connections.
func (g *Group) Len() int {
	return len(g.conns)
}

// Empty returns true if no connections are in the group.
func (g *Group) Empty() bool {
	return len(g.conns) == 0
}

// Snapshot copies the live connections out of the group.
func (g *Group) Snapshot() []*Conn {
	out := make([]*Conn, 0, len(g.conns))
	for c := range g.conns {
		if c.Alive() {
			out = append(out, c)
		}
	}
	return out
}
