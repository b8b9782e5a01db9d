package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "payment:signal:"

// SignalRedisRepository keeps processed payment references in Redis.
// Markers expire after ttl, which bounds them to the life of a payment session.
type SignalRedisRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSignalRedisRepository creates a new marker store.
func NewSignalRedisRepository(rdb *redis.Client, ttl time.Duration) *SignalRedisRepository {
	return &SignalRedisRepository{rdb: rdb, ttl: ttl}
}

// TryMark sets the marker only if it is absent.
func (r *SignalRedisRepository) TryMark(ctx context.Context, reference string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, keyPrefix+reference, time.Now().UTC().Format(time.RFC3339Nano), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark payment reference: %w", err)
	}

	return ok, nil
}

// Unmark deletes the marker.
func (r *SignalRedisRepository) Unmark(ctx context.Context, reference string) error {
	if err := r.rdb.Del(ctx, keyPrefix+reference).Err(); err != nil {
		return fmt.Errorf("failed to unmark payment reference: %w", err)
	}

	return nil
}
