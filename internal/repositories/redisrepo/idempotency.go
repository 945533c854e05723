package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyRepository remembers processed request IDs for a bounded time.
type IdempotencyRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewIdempotencyRepository(client *redis.Client, ttl time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{
		client: client,
		prefix: "idem:",
		ttl:    ttl,
	}
}

// Seen reports whether key was remembered within the ttl.
func (r *IdempotencyRepository) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return n > 0, nil
}

// Remember records key as processed. Call it only once the work it stands for
// is durable.
func (r *IdempotencyRepository) Remember(ctx context.Context, key string) error {
	if err := r.client.Set(ctx, r.prefix+key, time.Now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}
