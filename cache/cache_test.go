package cache

import (
	"context"
	"testing"
	"time"

	"short-link-service/config"
	"short-link-service/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.CacheConfig {
	return config.CacheConfig{
		URLTTLSeconds:     3600,
		PopularTTLSeconds: 7200,
		PopularThreshold:  100,
		ClickTTLSeconds:   86400,
		LocalEnabled:      false,
	}
}

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		client.Close()
		s.Close()
	})

	return New(client, nil, testConfig(), 2*time.Second), s
}

func testProjection() *model.Projection {
	return &model.Projection{
		ID:          "id-1",
		OriginalURL: "https://example.com/a/b",
		HasPassword: false,
	}
}

func TestPutGetURL(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	c.PutURL(ctx, "abc12345", testProjection(), time.Hour)

	got := c.GetURL(ctx, "abc12345")
	require.NotNil(t, got)
	assert.Equal(t, "https://example.com/a/b", got.OriginalURL)
	assert.Equal(t, "id-1", got.ID)
	assert.False(t, got.HasPassword)
}

func TestGetURL_Miss(t *testing.T) {
	c, _ := setupCache(t)

	assert.Nil(t, c.GetURL(context.Background(), "nope"))
}

func TestGetURL_TTLExpiry(t *testing.T) {
	c, s := setupCache(t)
	ctx := context.Background()

	c.PutURL(ctx, "abc12345", testProjection(), time.Hour)
	require.NotNil(t, c.GetURL(ctx, "abc12345"))

	s.FastForward(2 * time.Hour)

	assert.Nil(t, c.GetURL(ctx, "abc12345"))
}

func TestInvalidateURL(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	c.PutURL(ctx, "abc12345", testProjection(), time.Hour)
	require.NotNil(t, c.GetURL(ctx, "abc12345"))

	c.InvalidateURL(ctx, "abc12345")

	assert.Nil(t, c.GetURL(ctx, "abc12345"))
}

func TestClickCounter(t *testing.T) {
	c, s := setupCache(t)
	ctx := context.Background()

	assert.EqualValues(t, 0, c.CachedClicks(ctx, "abc12345"))

	assert.EqualValues(t, 1, c.IncrementClicks(ctx, "abc12345"))
	assert.EqualValues(t, 2, c.IncrementClicks(ctx, "abc12345"))
	assert.EqualValues(t, 2, c.CachedClicks(ctx, "abc12345"))

	// Counter carries the 24h TTL
	ttl := s.TTL("clicks:abc12345")
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestURLTTL_PopularLink(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	assert.Equal(t, time.Hour, c.URLTTL(ctx, "cold1234"))

	for i := 0; i < 100; i++ {
		c.IncrementClicks(ctx, "hot12345")
	}
	assert.Equal(t, 2*time.Hour, c.URLTTL(ctx, "hot12345"))
}

func TestCheckRateLimit_Window(t *testing.T) {
	c, s := setupCache(t)
	ctx := context.Background()

	window := 900 * time.Second
	for i := 1; i <= 3; i++ {
		decision := c.CheckRateLimit(ctx, "general:10.0.0.1", 3, window)
		assert.True(t, decision.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 3-i, decision.Remaining)
	}

	decision := c.CheckRateLimit(ctx, "general:10.0.0.1", 3, window)
	assert.False(t, decision.Allowed, "request over the limit should be denied")
	assert.Equal(t, 0, decision.Remaining)

	// A fresh window resets the budget
	s.FastForward(window + time.Second)
	decision = c.CheckRateLimit(ctx, "general:10.0.0.1", 3, window)
	assert.True(t, decision.Allowed)
}

func TestCheckRateLimit_CounterNeverOutlivesWindow(t *testing.T) {
	c, s := setupCache(t)
	ctx := context.Background()

	// The counter and its TTL appear together on the first request
	c.CheckRateLimit(ctx, "create:10.0.0.1", 3, time.Minute)
	assert.Equal(t, time.Minute, s.TTL("rate:create:10.0.0.1"))

	// Later requests in the same window do not extend it
	c.CheckRateLimit(ctx, "create:10.0.0.1", 3, time.Minute)
	assert.Equal(t, time.Minute, s.TTL("rate:create:10.0.0.1"))
}

func TestCheckRateLimit_IdentifiersIndependent(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c.CheckRateLimit(ctx, "general:10.0.0.1", 3, time.Minute)
	}
	require.False(t, c.CheckRateLimit(ctx, "general:10.0.0.1", 3, time.Minute).Allowed)

	assert.True(t, c.CheckRateLimit(ctx, "general:10.0.0.2", 3, time.Minute).Allowed)
}

func TestDegradedMode(t *testing.T) {
	// Every operation must turn into a miss/zero/allow when Redis is gone
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	c := New(client, nil, testConfig(), 500*time.Millisecond)
	s.Close()

	ctx := context.Background()

	c.PutURL(ctx, "abc12345", testProjection(), time.Hour)
	assert.Nil(t, c.GetURL(ctx, "abc12345"))
	c.InvalidateURL(ctx, "abc12345")
	assert.EqualValues(t, 0, c.IncrementClicks(ctx, "abc12345"))
	assert.EqualValues(t, 0, c.CachedClicks(ctx, "abc12345"))

	decision := c.CheckRateLimit(ctx, "general:10.0.0.1", 3, time.Minute)
	assert.True(t, decision.Allowed, "rate limiter must fail open")
	assert.Equal(t, 3, decision.Remaining)

	assert.False(t, c.Ping(ctx))
}

func TestLocalCache(t *testing.T) {
	cfg := testConfig()
	cfg.LocalEnabled = true
	cfg.LocalMaxSizeMB = 8
	cfg.LocalTTLSeconds = 60
	cfg.LocalCounterSize = 1000

	local, err := NewLocal(cfg)
	require.NoError(t, err)
	defer local.Close()

	local.Put("abc12345", testProjection())

	// ristretto admits asynchronously
	require.Eventually(t, func() bool {
		return local.Get("abc12345") != nil
	}, time.Second, 10*time.Millisecond)

	local.Delete("abc12345")
	require.Eventually(t, func() bool {
		return local.Get("abc12345") == nil
	}, time.Second, 10*time.Millisecond)
}
