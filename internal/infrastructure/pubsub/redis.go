// Package pubsub receives lifecycle notifications over Redis pub/sub.
package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel lifecycle notifications are published on.
const DefaultChannel = "loopvideo:lifecycle"

// LifecycleChannel publishes and receives lifecycle signal names on a Redis channel.
type LifecycleChannel struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewLifecycleChannel creates a LifecycleChannel. An empty channel uses DefaultChannel.
func NewLifecycleChannel(client *redis.Client, channel string, logger *slog.Logger) *LifecycleChannel {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleChannel{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Channel returns the Redis channel name.
func (c *LifecycleChannel) Channel() string {
	return c.channel
}

// Publish sends a signal name and returns the number of subscribers that received it.
func (c *LifecycleChannel) Publish(ctx context.Context, signal string) (int64, error) {
	n, err := c.client.Publish(ctx, c.channel, signal).Result()
	if err != nil {
		return 0, fmt.Errorf("redis publish: %w", err)
	}
	return n, nil
}

// Listen delivers each received payload to handler until ctx is cancelled.
// Payloads are trimmed; empty payloads are skipped.
func (c *LifecycleChannel) Listen(ctx context.Context, handler func(signal string)) error {
	sub := c.client.Subscribe(ctx, c.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	c.logger.Info("listening for lifecycle signals", "channel", c.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			payload := strings.TrimSpace(msg.Payload)
			if payload == "" {
				continue
			}
			handler(payload)
		}
	}
}

// Ping checks the Redis connection.
func (c *LifecycleChannel) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
