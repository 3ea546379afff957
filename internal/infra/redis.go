package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// PushSink is the hosted pub/sub capability spec §1 treats as an external
// collaborator: publish(channel, eventName, payload). Grounded on
// github.com/redis/go-redis/v9 (sourced from the sibling LerianStudio-midaz
// example), whose PUBLISH command maps directly onto this contract. This
// also gives the Config.RedisURL field, unused anywhere in the teacher, its
// first real caller.
type PushSink struct {
	client *redis.Client
	logger *slog.Logger
}

// NewPushSink dials Redis lazily; go-redis connections are established on
// first use, so this never blocks.
func NewPushSink(redisURL string, logger *slog.Logger) (*PushSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &PushSink{client: redis.NewClient(opts), logger: logger}, nil
}

// Publish sends payload on channel. Satisfies the Outbox Worker's publish
// dependency (spec §4.5 step 6).
func (s *PushSink) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Ping verifies the Redis connection is reachable.
func (s *PushSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *PushSink) Close() error {
	return s.client.Close()
}
