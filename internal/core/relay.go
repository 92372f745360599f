package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/metrics"
)

// Relay forwards call-signaling messages to every socket connection of the
// addressed user. It keeps no call state, never retries and never queues:
// a target without live sockets simply gets nothing.
type Relay struct {
	registry *Registry
	policy   Policy
	log      *zerolog.Logger
}

// NewRelay builds a relay over the registry. A nil policy allows everything.
func NewRelay(registry *Registry, policy Policy, logger *zerolog.Logger) *Relay {
	if policy == nil {
		policy = AllowAll()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Relay{registry: registry, policy: policy, log: logger}
}

// Relay validates sig and delivers it with From set to the sender.
// It returns the number of connections the signal was queued on; zero with a
// nil error is a routing miss.
func (r *Relay) Relay(ctx context.Context, from string, sig Signal) (int, error) {
	if sig == nil {
		return 0, fmt.Errorf("%w: empty signal", ErrMalformedMessage)
	}
	kind := string(sig.Kind())

	if from == "" {
		metrics.Signals.WithLabelValues(kind, metrics.ResultRejected).Inc()
		return 0, fmt.Errorf("%w: sender is required", ErrMalformedMessage)
	}
	if err := sig.Validate(); err != nil {
		metrics.Signals.WithLabelValues(kind, metrics.ResultRejected).Inc()
		r.log.Warn().Err(err).Str("user_id", from).Str("kind", kind).Msg("malformed signal dropped")
		return 0, err
	}

	to := sig.Target()
	allowed, err := r.policy.AllowSignal(ctx, from, to)
	if err != nil {
		metrics.Signals.WithLabelValues(kind, metrics.ResultRejected).Inc()
		r.log.Error().Err(err).Str("user_id", from).Str("to", to).Msg("signal policy check failed")
		return 0, fmt.Errorf("signal policy: %w", err)
	}
	if !allowed {
		metrics.Signals.WithLabelValues(kind, metrics.ResultRejected).Inc()
		r.log.Info().Str("user_id", from).Str("to", to).Str("kind", kind).Msg("signal denied by policy")
		return 0, ErrSignalForbidden
	}

	ev := &Event{Kind: EventSignal, From: from, Signal: sig}
	delivered := 0
	for _, c := range r.registry.Lookup(to) {
		if c.Kind != KindSocket {
			continue
		}
		if c.Deliver(ev) {
			delivered++
		}
	}

	if delivered == 0 {
		metrics.Signals.WithLabelValues(kind, metrics.ResultMiss).Inc()
		r.log.Debug().Str("user_id", from).Str("to", to).Str("kind", kind).Msg("signal target offline, dropped")
		return 0, nil
	}

	metrics.Signals.WithLabelValues(kind, metrics.ResultDelivered).Inc()
	r.log.Debug().
		Str("user_id", from).
		Str("to", to).
		Str("kind", kind).
		Int("delivered", delivered).
		Msg("signal relayed")
	return delivered, nil
}
