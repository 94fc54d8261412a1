// Package ratelimit provides fixed-window request limiting, used to slow
// down credential guessing on the auth endpoints
package ratelimit

import (
	"context"
	"time"
)

// Result of a rate limit check
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait when denied
	RetryAfter time.Duration
}

// Limiter checks whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)

	// Reset clears the window for a key
	Reset(ctx context.Context, key string) error

	Close() error
}

// Config for a limiter
type Config struct {
	// Requests allowed per window
	Requests int

	// Window length
	Window time.Duration

	// KeyPrefix namespaces Redis keys
	KeyPrefix string

	// FailOpen allows requests when the backing store is unreachable.
	// Locking every user out is worse than briefly losing the limit.
	FailOpen bool
}

// DefaultConfig returns limits suited to the login endpoint
func DefaultConfig() Config {
	return Config{
		Requests:  10,
		Window:    time.Minute,
		KeyPrefix: "ratelimit:",
		FailOpen:  true,
	}
}
