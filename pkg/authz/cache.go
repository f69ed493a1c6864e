package authz

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/observability"
	"github.com/planora/planora/pkg/storage/postgres"
)

const cacheKeyPrefix = "authz:membership:"

// cacheEntry caches both presence and absence of a membership. Negative
// entries are safe because every path that creates a membership invalidates
// the pair.
type cacheEntry struct {
	Found      bool                    `json:"found"`
	Membership *memberships.Membership `json:"membership,omitempty"`
}

// membershipCache is a two-level read-through cache for membership lookups:
// an in-process expirable LRU in front of an optional shared Redis layer.
// Entries are short-lived and invalidated explicitly on mutation, so the
// guard's decisions stay correct without it.
type membershipCache struct {
	local   *lru.LRU[string, cacheEntry]
	redis   *postgres.RedisClient
	ttl     time.Duration
	metrics *observability.Metrics
}

func newMembershipCache(size int, ttl time.Duration, redis *postgres.RedisClient, metrics *observability.Metrics) *membershipCache {
	return &membershipCache{
		local:   lru.NewLRU[string, cacheEntry](size, nil, ttl),
		redis:   redis,
		ttl:     ttl,
		metrics: metrics,
	}
}

func cacheKey(userID, workspaceID uuid.UUID) string {
	return cacheKeyPrefix + workspaceID.String() + ":" + userID.String()
}

func (c *membershipCache) get(ctx context.Context, userID, workspaceID uuid.UUID) (cacheEntry, bool) {
	key := cacheKey(userID, workspaceID)

	if entry, ok := c.local.Get(key); ok {
		c.hit("local")
		return entry, true
	}
	c.miss("local")

	if c.redis != nil {
		var entry cacheEntry
		found, err := c.redis.GetJSON(ctx, key, &entry)
		if err == nil && found {
			c.hit("redis")
			c.local.Add(key, entry)
			return entry, true
		}
		c.miss("redis")
	}

	return cacheEntry{}, false
}

func (c *membershipCache) set(ctx context.Context, userID, workspaceID uuid.UUID, entry cacheEntry) {
	key := cacheKey(userID, workspaceID)
	c.local.Add(key, entry)
	if c.redis != nil {
		// Best effort; a failed write only costs a future miss.
		_ = c.redis.SetJSON(ctx, key, entry, c.ttl)
	}
}

func (c *membershipCache) invalidate(ctx context.Context, userID, workspaceID uuid.UUID) {
	key := cacheKey(userID, workspaceID)
	c.local.Remove(key)
	if c.redis != nil {
		_ = c.redis.Delete(ctx, key)
	}
}

func (c *membershipCache) invalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) {
	prefix := cacheKeyPrefix + workspaceID.String() + ":"
	for _, key := range c.local.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.local.Remove(key)
		}
	}
	if c.redis != nil {
		_ = c.redis.DeletePattern(ctx, prefix+"*")
	}
}

func (c *membershipCache) hit(layer string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(layer).Inc()
	}
}

func (c *membershipCache) miss(layer string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(layer).Inc()
	}
}
