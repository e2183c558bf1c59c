package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zipweather/zip-weather-service/internal/models"
)

// RedisCache implements Cache using redis with JSON-serialized values.
// TTL is enforced via SET expiration.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache and verifies connectivity with a ping.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get implements Cache.Get. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (models.WeatherResult, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return models.WeatherResult{}, false, nil
	}
	if err != nil {
		return models.WeatherResult{}, false, fmt.Errorf("redis get: %w", err)
	}
	var result models.WeatherResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return models.WeatherResult{}, false, fmt.Errorf("redis decode: %w", err)
	}
	return result, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value models.WeatherResult) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks if redis is reachable. Used for health checks.
func (c *RedisCache) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close closes the redis client connections. Call during shutdown.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
