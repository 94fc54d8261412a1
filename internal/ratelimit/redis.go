package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a fixed-window limiter shared across server instances
type Redis struct {
	config Config
	client *redis.Client
	logger *zap.Logger
}

// NewRedis creates a Redis-backed limiter
func NewRedis(opts *redis.Options, config Config, logger *zap.Logger) (*Redis, error) {
	if opts == nil {
		return nil, fmt.Errorf("redis options are required")
	}
	if config.Requests <= 0 {
		config.Requests = DefaultConfig().Requests
	}
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{config: config, client: client, logger: logger}, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := r.config.KeyPrefix + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return r.failure(err)
	}
	if count == 1 {
		// First hit opens the window.
		if err := r.client.Expire(ctx, redisKey, r.config.Window).Err(); err != nil {
			return r.failure(err)
		}
	}

	if count > int64(r.config.Requests) {
		ttl, err := r.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = r.config.Window
		}
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}

	return Result{
		Allowed:   true,
		Remaining: r.config.Requests - int(count),
	}, nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.config.KeyPrefix+key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) failure(err error) (Result, error) {
	if r.config.FailOpen {
		r.logger.Warn("rate limit backend unavailable, allowing request", zap.Error(err))
		return Result{Allowed: true, Remaining: r.config.Requests}, nil
	}
	return Result{}, fmt.Errorf("rate limit check: %w", err)
}
