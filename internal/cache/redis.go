package cache

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis-backed cache
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
	PoolSize  int
}

// DefaultRedisConfig returns default Redis settings
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:      "localhost",
		Port:      6379,
		KeyPrefix: "expenseflow:",
		TTL:       5 * time.Minute,
		PoolSize:  10,
	}
}

// Redis implements Cache on a Redis server, shared across instances.
// Redis failures degrade to cache misses; they never surface to callers.
type Redis struct {
	client *redis.Client
	config *RedisConfig
	logger *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedis creates a Redis cache and verifies connectivity
func NewRedis(config *RedisConfig, logger *zap.Logger) (*Redis, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if config.TTL == 0 {
		config.TTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port)),
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, config: config, logger: logger}, nil
}

// Get retrieves a value from the cache
func (c *Redis) Get(key string) ([]byte, bool) {
	data, err := c.client.Get(context.Background(), c.config.KeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("redis get failed", zap.String("key", key), zap.Error(err))
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

// Set adds or updates a value in the cache
func (c *Redis) Set(key string, value []byte) {
	err := c.client.Set(context.Background(), c.config.KeyPrefix+key, value, c.config.TTL).Err()
	if err != nil {
		c.logger.Debug("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a key from the cache
func (c *Redis) Delete(key string) {
	c.client.Del(context.Background(), c.config.KeyPrefix+key)
}

// Clear removes all entries under the key prefix
func (c *Redis) Clear() {
	ctx := context.Background()
	iter := c.client.Scan(ctx, 0, c.config.KeyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

// Stats returns cache statistics
func (c *Redis) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	size := 0
	if dbSize, err := c.client.DBSize(context.Background()).Result(); err == nil {
		size = int(dbSize)
	}

	return Stats{Size: size, Hits: hits, Misses: misses, HitRate: hitRate}
}

// Close closes the Redis connection
func (c *Redis) Close() error {
	return c.client.Close()
}
