// Package cache is the non-authoritative side of the cache-aside protocol:
// Redis holds link projections, ephemeral click counters and rate-limit
// counters. Every operation is best-effort. Redis errors are logged here
// and surface to callers as a miss, a zero count or an allow decision,
// never as a request failure.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"short-link-service/config"
	"short-link-service/model"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const (
	urlKeyPrefix   = "url:"
	clickKeyPrefix = "clicks:"
	rateKeyPrefix  = "rate:"
)

// rateLimitScript increments the window counter and attaches the window
// TTL in one atomic step. Done separately, a failed EXPIRE after the
// first INCR would leave a counter that never resets and throttles the
// identifier forever.
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current`)

// RateDecision is the outcome of a fixed-window rate check.
type RateDecision struct {
	Allowed   bool
	Remaining int
}

// Cache wraps the shared Redis client with short-link specific operations.
type Cache struct {
	rdb       *redis.Client
	local     *Local
	opTimeout time.Duration

	urlTTL           time.Duration
	popularTTL       time.Duration
	popularThreshold int64
	clickTTL         time.Duration
}

// New builds the cache layer on top of an already connected Redis client.
// local may be nil when the in-process hot cache is disabled.
func New(rdb *redis.Client, local *Local, cfg config.CacheConfig, opTimeout time.Duration) *Cache {
	return &Cache{
		rdb:              rdb,
		local:            local,
		opTimeout:        opTimeout,
		urlTTL:           time.Duration(cfg.URLTTLSeconds) * time.Second,
		popularTTL:       time.Duration(cfg.PopularTTLSeconds) * time.Second,
		popularThreshold: cfg.PopularThreshold,
		clickTTL:         time.Duration(cfg.ClickTTLSeconds) * time.Second,
	}
}

// URLTTL returns the projection TTL for a link, using the longer TTL for
// links whose ephemeral click counter is above the popularity threshold.
func (c *Cache) URLTTL(ctx context.Context, shortCode string) time.Duration {
	if c.CachedClicks(ctx, shortCode) >= c.popularThreshold {
		return c.popularTTL
	}
	return c.urlTTL
}

// PutURL stores a link projection under url:<code>.
func (c *Cache) PutURL(ctx context.Context, shortCode string, p *model.Projection, ttl time.Duration) {
	if c.local != nil {
		c.local.Put(shortCode, p)
	}
	if c.rdb == nil {
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Str("short_code", shortCode).Msg("Failed to marshal projection")
		return
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.rdb.Set(ctx, urlKeyPrefix+shortCode, data, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("short_code", shortCode).Msg("Cache put failed")
	}
}

// GetURL returns the cached projection for a code, or nil on miss.
// A Redis error is a miss.
func (c *Cache) GetURL(ctx context.Context, shortCode string) *model.Projection {
	if c.local != nil {
		if p := c.local.Get(shortCode); p != nil {
			return p
		}
	}
	if c.rdb == nil {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := c.rdb.Get(ctx, urlKeyPrefix+shortCode).Bytes()
	if err == redis.Nil {
		return nil
	} else if err != nil {
		log.Warn().Err(err).Str("short_code", shortCode).Msg("Cache get failed")
		return nil
	}

	var p model.Projection
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("short_code", shortCode).Msg("Failed to unmarshal cached projection")
		return nil
	}

	if c.local != nil {
		c.local.Put(shortCode, &p)
	}
	return &p
}

// InvalidateURL removes the projection from both cache layers. Called
// synchronously on link deletion; TTL alone is not enough there, serving
// a deleted link's destination is a correctness violation.
func (c *Cache) InvalidateURL(ctx context.Context, shortCode string) {
	if c.local != nil {
		c.local.Delete(shortCode)
	}
	if c.rdb == nil {
		return
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.rdb.Del(ctx, urlKeyPrefix+shortCode).Err(); err != nil {
		log.Warn().Err(err).Str("short_code", shortCode).Msg("Cache invalidate failed")
	}
}

// IncrementClicks advances the ephemeral per-code click counter. The
// counter is a display hint only; the store owns the authoritative count.
func (c *Cache) IncrementClicks(ctx context.Context, shortCode string) int64 {
	if c.rdb == nil {
		return 0
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	key := clickKeyPrefix + shortCode
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Str("short_code", shortCode).Msg("Click counter increment failed")
		return 0
	}
	c.rdb.Expire(ctx, key, c.clickTTL)
	return count
}

// CachedClicks returns the ephemeral click counter, zero on miss or error.
func (c *Cache) CachedClicks(ctx context.Context, shortCode string) int64 {
	if c.rdb == nil {
		return 0
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	count, err := c.rdb.Get(ctx, clickKeyPrefix+shortCode).Int64()
	if err != nil {
		return 0
	}
	return count
}

// CheckRateLimit applies one fixed-window counter check for identifier.
// The first request in a window creates the counter with the window as
// its TTL, atomically, so the counter can never outlive its window.
// Fails open: any Redis error returns an allow with a full budget.
func (c *Cache) CheckRateLimit(ctx context.Context, identifier string, limit int, window time.Duration) RateDecision {
	if c.rdb == nil {
		return RateDecision{Allowed: true, Remaining: limit}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	key := rateKeyPrefix + identifier
	current, err := rateLimitScript.Run(ctx, c.rdb, []string{key}, int(window.Seconds())).Int64()
	if err != nil {
		log.Warn().Err(err).Str("identifier", identifier).Msg("Rate limit check failed, allowing")
		return RateDecision{Allowed: true, Remaining: limit}
	}

	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return RateDecision{Allowed: current <= int64(limit), Remaining: remaining}
}

// Ping reports Redis connectivity for health checks.
func (c *Cache) Ping(ctx context.Context) bool {
	if c.rdb == nil {
		return false
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.rdb.Ping(ctx).Err() == nil
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}
