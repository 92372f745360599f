package core

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/metrics"
)

// Publisher accepts domain events for delivery.
type Publisher interface {
	Publish(ev DomainEvent) (int, error)
}

// Fanout pushes domain events to open stream connections.
//
// Delivery is at-most-once and best-effort: nothing is queued for users
// without an open stream and nothing is replayed on reconnect.
type Fanout struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewFanout builds a fan-out channel over the registry.
func NewFanout(registry *Registry, logger *zerolog.Logger) *Fanout {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Fanout{registry: registry, log: logger}
}

// Validate checks that an event can be routed.
func (e DomainEvent) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("%w: event type is required", ErrMalformedMessage)
	}
	if e.Type == PingType {
		return fmt.Errorf("%w: event type %q is reserved", ErrMalformedMessage, PingType)
	}
	if e.Scope.UserID == "" && !e.Scope.Broadcast {
		return fmt.Errorf("%w: event needs a target user or broadcast scope", ErrMalformedMessage)
	}
	if e.Scope.UserID != "" && e.Scope.Broadcast {
		return fmt.Errorf("%w: event scope is either a user or broadcast", ErrMalformedMessage)
	}
	return nil
}

// Publish delivers ev to every open stream in its scope and returns how many
// streams received it.
func (f *Fanout) Publish(ev DomainEvent) (int, error) {
	if err := ev.Validate(); err != nil {
		metrics.Events.WithLabelValues(metrics.ResultRejected).Inc()
		return 0, err
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	var targets []*Conn
	if ev.Scope.Broadcast {
		targets = f.registry.All(KindStream)
	} else {
		targets = f.registry.Lookup(ev.Scope.UserID)
	}

	out := &Event{Kind: EventDomain, Domain: &ev}
	delivered := 0
	for _, c := range targets {
		if c.Kind != KindStream {
			continue
		}
		if c.Deliver(out) {
			delivered++
		}
	}

	logEv := f.log.Debug().Str("type", ev.Type).Int("delivered", delivered)
	if ev.Scope.Broadcast {
		logEv = logEv.Bool("broadcast", true)
	} else {
		logEv = logEv.Str("user_id", ev.Scope.UserID)
	}

	if delivered == 0 {
		metrics.Events.WithLabelValues(metrics.ResultMiss).Inc()
		logEv.Msg("domain event has no open stream, dropped")
		return 0, nil
	}

	metrics.Events.WithLabelValues(metrics.ResultDelivered).Inc()
	logEv.Msg("domain event published")
	return delivered, nil
}
