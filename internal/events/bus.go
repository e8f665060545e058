// Package events publishes liveness transitions to a Redis stream so
// dashboard frontends and other consumers can follow fleet state live
// instead of polling the registry export.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stream is the Redis stream liveness transitions are appended to.
const Stream = "agentdeck:liveness"

// LivenessEvent is one debounced online/offline transition.
type LivenessEvent struct {
	Agent   string    `json:"agent"`
	BaseURL string    `json:"base_url"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	At      time.Time `json:"at"`
}

// Bus appends liveness events to a Redis stream.
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewBus connects to Redis and verifies the connection.
func NewBus(redisURL string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{rdb: rdb, logger: logger}, nil
}

// PublishTransition appends one event to the stream.
func (b *Bus) PublishTransition(ctx context.Context, ev *LivenessEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", Stream, err)
	}

	b.logger.Debug("published liveness event",
		zap.String("agent", ev.Agent),
		zap.String("from", ev.From),
		zap.String("to", ev.To))
	return nil
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
