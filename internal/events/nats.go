package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/core"
)

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Subject       string        // e.g. twin.events.>
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "twin.events.>",
		Name:          "twinlink",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NATSSource subscribes to a subject and publishes every decoded message.
type NATSSource struct {
	conn    *nats.Conn
	subject string
	log     *zerolog.Logger
}

// NewNATSSource connects to NATS. It returns an error if the initial connection fails.
func NewNATSSource(cfg NATSConfig, logger *zerolog.Logger) (*NATSSource, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info().Str("url", nc.ConnectedUrl()).Str("subject", cfg.Subject).Msg("nats event source connected")

	return &NATSSource{conn: nc, subject: cfg.Subject, log: logger}, nil
}

// Run subscribes and blocks until ctx is done.
func (s *NATSSource) Run(ctx context.Context, pub core.Publisher) error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		deliver(s.log, pub, msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", s.subject, err)
	}

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		s.log.Warn().Err(err).Str("subject", s.subject).Msg("nats drain subscription")
	}
	return nil
}

// Close drains the NATS connection.
func (s *NATSSource) Close() error {
	if err := s.conn.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// deliver decodes one raw envelope and publishes it; failures are logged only.
func deliver(logger *zerolog.Logger, pub core.Publisher, origin string, data []byte) {
	ev, err := Decode(data)
	if err != nil {
		logger.Warn().Err(err).Str("origin", origin).Msg("dropping undecodable domain event")
		return
	}
	if _, err := pub.Publish(ev); err != nil {
		logger.Warn().Err(err).Str("origin", origin).Str("type", ev.Type).Msg("publish domain event")
	}
}
