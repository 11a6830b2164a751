package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the shared client with the key conventions of the API.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// --- Cache générique ---

// SetJSON stores value as JSON under key.
func (r *Redis) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// GetJSON decodes the value under key into out. A miss reports false.
func (r *Redis) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cache %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// --- Rate Limiting ---

// Increment bumps the counter under key and (re)arms its window.
func (r *Redis) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// TTL returns the time left on key, zero when it has none.
func (r *Redis) TTL(ctx context.Context, key string) time.Duration {
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

// --- Sequences ---

// Next returns the next integer id for name, starting at 1.
func (r *Redis) Next(ctx context.Context, name string) (int, error) {
	n, err := r.client.Incr(ctx, "seq:"+name).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
