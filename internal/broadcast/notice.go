// Package broadcast tells other instances that a session slot was
// persisted, so any instance holding the same session can reload it.
package broadcast

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
)

// Channel is the Redis pub/sub channel notices are published on.
const Channel = "storefront:slot-changed"

// Notice announces that a slot of a session was written by Origin.
type Notice struct {
	SessionID string      `json:"session_id"`
	Slot      domain.Slot `json:"slot"`
	Origin    string      `json:"origin"`
	Version   uint64      `json:"version"`
}

// Notifier publishes slot-change notices.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, slot domain.Slot, version uint64) error
}

// NopNotifier drops every notice. It is used when the backend has no
// pub/sub channel.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, domain.Slot, uint64) error { return nil }

// RedisNotifier publishes notices on Channel.
type RedisNotifier struct {
	client redis.UniversalClient
	origin string
}

// NewRedisNotifier returns a notifier that stamps notices with origin.
func NewRedisNotifier(client redis.UniversalClient, origin string) *RedisNotifier {
	return &RedisNotifier{client: client, origin: origin}
}

func (n *RedisNotifier) Notify(ctx context.Context, sessionID string, slot domain.Slot, version uint64) error {
	payload, err := json.Marshal(Notice{
		SessionID: sessionID,
		Slot:      slot,
		Origin:    n.origin,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	if err := n.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", Channel, err)
	}
	return nil
}
