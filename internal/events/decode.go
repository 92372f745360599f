// Package events bridges domain events produced by other services
// (activity, comment, match, reward) into the realtime fan-out channel.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/proto"
)

// Source feeds domain events into a publisher until ctx is done.
type Source interface {
	Run(ctx context.Context, pub core.Publisher) error
	Close() error
}

// Decode parses a published envelope into a domain event.
func Decode(data []byte) (core.DomainEvent, error) {
	var req proto.PublishRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return core.DomainEvent{}, fmt.Errorf("%w: %v", core.ErrMalformedMessage, err)
	}
	return FromRequest(req)
}

// FromRequest converts a publish request and validates it.
func FromRequest(req proto.PublishRequest) (core.DomainEvent, error) {
	ev := core.DomainEvent{
		Type:    req.Type,
		Payload: req.Payload,
		Scope: core.Scope{
			UserID:    req.Target.UserID,
			Broadcast: req.Target.Broadcast,
		},
		CreatedAt: time.Now(),
	}
	if err := ev.Validate(); err != nil {
		return core.DomainEvent{}, err
	}
	return ev, nil
}
