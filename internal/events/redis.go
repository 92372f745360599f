package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/core"
)

// RedisSource pattern-subscribes to Redis pub/sub channels.
type RedisSource struct {
	client  *redis.Client
	pattern string
	log     *zerolog.Logger
}

// NewRedisSource connects to Redis and verifies the connection.
func NewRedisSource(addr, pattern string, logger *zerolog.Logger) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	logger.Info().Str("addr", addr).Str("pattern", pattern).Msg("redis event source connected")

	return &RedisSource{client: client, pattern: pattern, log: logger}, nil
}

// Run consumes the subscription until ctx is done.
func (s *RedisSource) Run(ctx context.Context, pub core.Publisher) error {
	ps := s.client.PSubscribe(ctx, s.pattern)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe %s: %w", s.pattern, err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliver(s.log, pub, msg.Channel, []byte(msg.Payload))
		}
	}
}

// Close closes the Redis client.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
