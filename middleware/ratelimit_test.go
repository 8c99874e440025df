package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"short-link-service/cache"
	"short-link-service/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		client.Close()
		s.Close()
	})

	cacheLayer := cache.New(client, nil, config.CacheConfig{}, 2*time.Second)
	return NewRateLimiter(cacheLayer, config.RateLimitConfig{Enabled: true}), s
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = ip + ":52000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestLimit_DeniesOverBudget(t *testing.T) {
	limiter, _ := setupLimiter(t)
	window := config.RateWindow{WindowSeconds: 60, Max: 2}
	handler := limiter.Limit("general", window)(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1").Code)

	w := doRequest(handler, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// A different caller still has a full budget
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.2").Code)
}

func TestLimit_WindowReset(t *testing.T) {
	limiter, s := setupLimiter(t)
	window := config.RateWindow{WindowSeconds: 60, Max: 1}
	handler := limiter.Limit("general", window)(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "10.0.0.1").Code)

	s.FastForward(61 * time.Second)
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1").Code)
}

func TestLimit_ScopesIndependent(t *testing.T) {
	limiter, _ := setupLimiter(t)
	tight := config.RateWindow{WindowSeconds: 60, Max: 1}
	authHandler := limiter.Limit("auth", tight)(okHandler())
	createHandler := limiter.Limit("create", tight)(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(authHandler, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(authHandler, "10.0.0.1").Code)

	// Exhausting the auth budget leaves the create budget untouched
	assert.Equal(t, http.StatusOK, doRequest(createHandler, "10.0.0.1").Code)
}

func TestLimit_FailsOpenWithoutRedis(t *testing.T) {
	limiter, s := setupLimiter(t)
	s.Close()

	window := config.RateWindow{WindowSeconds: 60, Max: 1}
	handler := limiter.Limit("general", window)(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1").Code,
			"limiter must fail open when the cache is unreachable")
	}
}

func TestLimit_Disabled(t *testing.T) {
	limiter, _ := setupLimiter(t)
	limiter.enabled = false

	window := config.RateWindow{WindowSeconds: 60, Max: 1}
	handler := limiter.Limit("general", window)(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1").Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:52000"
	assert.Equal(t, "192.0.2.10", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	// Spaces around the hop must not fragment the rate key
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
