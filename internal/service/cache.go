package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sheetalMehta7/chillTube-backend/internal/domain"
)

const profileKeyPrefix = "user:profile:"

// ProfileCache caches public user views so current-user lookups skip the
// database on the hot path.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
	Invalidate(ctx context.Context, userID string) error
}

// RedisProfileCache implements ProfileCache on Redis with a TTL.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProfileCache creates a new Redis-backed profile cache.
func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{client: client, ttl: ttl}
}

// Get returns the cached user or nil on a miss. Cache errors other than a
// miss are returned so the caller can decide to fall through.
func (c *RedisProfileCache) Get(ctx context.Context, userID string) (*domain.User, error) {
	data, err := c.client.Get(ctx, profileKeyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get profile: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("unmarshal cached profile: %w", err)
	}

	return &user, nil
}

// Set stores the user's public view with the configured TTL. Secret fields
// carry `json:"-"` so they never reach the cache.
func (c *RedisProfileCache) Set(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	if err := c.client.Set(ctx, profileKeyPrefix+user.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set profile: %w", err)
	}

	return nil
}

// Invalidate drops the cached profile. Missing keys are not an error.
func (c *RedisProfileCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, profileKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del profile: %w", err)
	}
	return nil
}

// NoopProfileCache disables caching. Used when Redis is not configured.
type NoopProfileCache struct{}

func (NoopProfileCache) Get(context.Context, string) (*domain.User, error) { return nil, nil }
func (NoopProfileCache) Set(context.Context, *domain.User) error           { return nil }
func (NoopProfileCache) Invalidate(context.Context, string) error          { return nil }
