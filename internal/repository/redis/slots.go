package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const keyPrefix = "storefront:"

// SlotKey returns the Redis key of a session slot.
func SlotKey(sessionID string, slot domain.Slot) string {
	return keyPrefix + sessionID + ":" + string(slot)
}

// SlotRepository implements repository.SlotRepository on Redis strings.
// Every write refreshes the key's TTL, so abandoned sessions expire.
type SlotRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSlotRepository returns a repository using client. A zero ttl keeps
// slots forever.
func NewSlotRepository(client redis.UniversalClient, ttl time.Duration) *SlotRepository {
	return &SlotRepository{client: client, ttl: ttl}
}

func (r *SlotRepository) Load(ctx context.Context, sessionID string, slot domain.Slot) ([]byte, error) {
	key := SlotKey(sessionID, slot)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NotFound("slot", sessionID+"/"+string(slot))
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (r *SlotRepository) Save(ctx context.Context, sessionID string, slot domain.Slot, data []byte) error {
	key := SlotKey(sessionID, slot)

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, sessionID string, slot domain.Slot) error {
	key := SlotKey(sessionID, slot)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection for readiness probes.
func (r *SlotRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
