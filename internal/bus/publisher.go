// Package bus publishes comparison results to Redis pub/sub so dashboards
// and downstream consumers can follow a session live.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/stockpilot/papertrade/internal/harness"
)

// Publisher pushes comparisons onto one Redis channel. Publish failures are
// logged and swallowed; the bus is a best-effort side channel, never a
// dependency of the tick loop.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(ctx context.Context, addr, channel string) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Publisher{client: client, channel: channel}, nil
}

// PublishComparison sends one comparison as JSON.
func (p *Publisher) PublishComparison(ctx context.Context, comp harness.Comparison) {
	payload, err := json.Marshal(comp)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal comparison")
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.Warn().Err(err).Str("channel", p.channel).Msg("comparison publish failed")
		return
	}
	log.Debug().Str("channel", p.channel).Int("bytes", len(payload)).Msg("comparison published")
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
