package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// item wraps cached data with its expiry
type item struct {
	data      *entity.DashboardStats
	expiresAt time.Time
}

// StatsCache is a bounded LRU of computed dashboards with per-entry TTL.
// Concurrent misses on one key share a single computation.
type StatsCache struct {
	lru   *lru.Cache[string, item]
	group singleflight.Group
	ttl   time.Duration
	now   func() time.Time
}

// NewStatsCache creates a cache holding up to size entries for ttl each
func NewStatsCache(size int, ttl time.Duration) (*StatsCache, error) {
	if size <= 0 {
		size = 256
	}
	l, err := lru.New[string, item](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &StatsCache{lru: l, ttl: ttl, now: time.Now}, nil
}

// GetOrCompute returns the cached value for key or computes it once
func (c *StatsCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (*entity.DashboardStats, error)) (*entity.DashboardStats, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	// the flight is shared, so one caller going away must not fail the rest
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		stats, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.lru.Add(key, item{data: stats, expiresAt: c.now().Add(c.ttl)})
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.DashboardStats), nil
}

// RemoveMatching drops entries whose key satisfies match
func (c *StatsCache) RemoveMatching(match func(key string) bool) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if match(key) && c.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// Purge drops every entry
func (c *StatsCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of entries, expired ones included
func (c *StatsCache) Len() int {
	return c.lru.Len()
}

func (c *StatsCache) get(key string) (*entity.DashboardStats, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(v.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return v.data, true
}

// Verify interface compliance
var _ port.StatsCache = (*StatsCache)(nil)
