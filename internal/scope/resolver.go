// Package scope resolves which users' records a principal may see
package scope

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// Config for scope resolution
type Config struct {
	CacheTTL     time.Duration // Time-to-live for cached scope sets
	CacheMaxSize int           // Maximum number of cached principals
	Metrics      CacheMetrics  // Optional cache hit/miss recorder
}

// CacheMetrics receives cache hit and miss events. The service metrics
// registry satisfies it; nil disables reporting.
type CacheMetrics interface {
	RecordScopeCacheHit()
	RecordScopeCacheMiss()
}

// DefaultConfig returns a default resolver configuration
func DefaultConfig() Config {
	return Config{
		CacheTTL:     30 * time.Second,
		CacheMaxSize: 10000,
	}
}

// Resolver computes the set of user IDs visible to a principal. The set is
// always derived from the principal's own company; a resolver result can
// never cross a company boundary.
//
// Visibility by role:
//   - employee: the principal alone
//   - manager:  the principal plus active direct reports, one level deep
//   - admin:    every user of the company, deactivated users included
type Resolver struct {
	config  Config
	users   store.UserStore
	cache   *scopeSetCache
	metrics CacheMetrics
	logger  *zap.Logger
}

// scopeSetCache for computed scope sets with TTL expiry
type scopeSetCache struct {
	mu        sync.RWMutex
	entries   map[string]*setEntry
	maxSize   int
	hitCount  atomic.Int64
	missCount atomic.Int64
}

type setEntry struct {
	set     types.UserIDSet
	expires int64
}

// NewResolver creates a new scope resolver
func NewResolver(config Config, users store.UserStore, logger *zap.Logger) (*Resolver, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 30 * time.Second
	}
	if config.CacheMaxSize == 0 {
		config.CacheMaxSize = 10000
	}

	return &Resolver{
		config:  config,
		users:   users,
		metrics: config.Metrics,
		logger:  logger,
		cache: &scopeSetCache{
			entries: make(map[string]*setEntry),
			maxSize: config.CacheMaxSize,
		},
	}, nil
}

// AccessibleUserIDs returns the user IDs whose expenses and profiles the
// principal may access. The result always contains the principal's own ID.
func (r *Resolver) AccessibleUserIDs(ctx context.Context, p types.Principal) (types.UserIDSet, error) {
	key := cacheKey(p)
	if set := r.cache.get(key); set != nil {
		if r.metrics != nil {
			r.metrics.RecordScopeCacheHit()
		}
		return set, nil
	}
	if r.metrics != nil {
		r.metrics.RecordScopeCacheMiss()
	}

	set, err := r.resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	r.cache.set(key, set, r.config.CacheTTL)
	return set, nil
}

// CanAccessUser reports whether target falls inside the principal's scope
func (r *Resolver) CanAccessUser(ctx context.Context, p types.Principal, targetID string) (bool, error) {
	set, err := r.AccessibleUserIDs(ctx, p)
	if err != nil {
		return false, err
	}
	return set.Contains(targetID), nil
}

func (r *Resolver) resolve(ctx context.Context, p types.Principal) (types.UserIDSet, error) {
	switch p.Role {
	case types.RoleEmployee:
		return types.NewUserIDSet(p.ID), nil

	case types.RoleManager:
		reports, err := r.users.ListDirectReports(ctx, p.ID, p.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("list direct reports: %w", err)
		}
		set := types.NewUserIDSet(p.ID)
		for _, u := range reports {
			set[u.ID] = struct{}{}
		}
		return set, nil

	case types.RoleAdmin:
		// Admins see deactivated users too, so their historical expenses
		// stay reachable.
		users, err := r.users.ListCompanyUsers(ctx, p.CompanyID, true)
		if err != nil {
			return nil, fmt.Errorf("list company users: %w", err)
		}
		set := types.NewUserIDSet(p.ID)
		for _, u := range users {
			set[u.ID] = struct{}{}
		}
		return set, nil

	default:
		// Unknown roles resolve to nothing.
		r.logger.Warn("scope requested for unknown role",
			zap.String("user_id", p.ID),
			zap.String("role", string(p.Role)))
		return types.UserIDSet{}, nil
	}
}

// Invalidate drops the cached scope set for one principal. Called after
// role or manager changes so the new hierarchy takes effect immediately.
func (r *Resolver) Invalidate(p types.Principal) {
	r.cache.delete(cacheKey(p))
}

// InvalidateAll clears the whole cache
func (r *Resolver) InvalidateAll() {
	r.cache.clear()
}

// GetStats returns cache statistics
func (r *Resolver) GetStats() CacheStats {
	return r.cache.stats()
}

// CacheStats contains cache performance metrics
type CacheStats struct {
	Size      int
	HitCount  int64
	MissCount int64
	HitRate   float64
}

func cacheKey(p types.Principal) string {
	return p.CompanyID + ":" + p.ID + ":" + string(p.Role)
}

// Cache methods

func (c *scopeSetCache) get(key string) types.UserIDSet {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.expires < time.Now().UnixMilli() {
		c.missCount.Add(1)
		return nil
	}

	c.hitCount.Add(1)
	return entry.set
}

func (c *scopeSetCache) set(key string, set types.UserIDSet, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple eviction: if cache is full, clear it
	if len(c.entries) >= c.maxSize {
		c.entries = make(map[string]*setEntry)
	}

	c.entries[key] = &setEntry{
		set:     set,
		expires: time.Now().Add(ttl).UnixMilli(),
	}
}

func (c *scopeSetCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *scopeSetCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*setEntry)
	c.hitCount.Store(0)
	c.missCount.Store(0)
}

func (c *scopeSetCache) stats() CacheStats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	hits := c.hitCount.Load()
	misses := c.missCount.Load()
	total := float64(hits + misses)
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / total
	}

	return CacheStats{
		Size:      size,
		HitCount:  hits,
		MissCount: misses,
		HitRate:   hitRate,
	}
}
