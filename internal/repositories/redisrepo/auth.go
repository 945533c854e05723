package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrTokenNotFound = errors.New("session token not found")

// TokenRepository maps login session tokens to user IDs.
type TokenRepository struct {
	client *redis.Client
	prefix string
}

func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{
		client: client,
		prefix: "auth:token:",
	}
}

func (r *TokenRepository) SaveToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

func (r *TokenRepository) GetUserID(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, r.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	return userID, nil
}

// DeleteToken reports whether the token existed.
func (r *TokenRepository) DeleteToken(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Del(ctx, r.prefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete session token: %w", err)
	}
	return n > 0, nil
}
