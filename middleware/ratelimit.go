package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"short-link-service/cache"
	"short-link-service/config"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// RateLimiter applies fixed-window counters held in the cache layer,
// keyed by route scope plus client IP. When Redis is unreachable the
// cache layer answers allow, so the limiter fails open by construction:
// availability wins over strict throttling.
type RateLimiter struct {
	cache   *cache.Cache
	enabled bool
}

func NewRateLimiter(cacheLayer *cache.Cache, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{cache: cacheLayer, enabled: cfg.Enabled}
}

// Limit returns a middleware enforcing one window budget under the given
// scope. Distinct scopes keep auth and creation budgets separate from
// general traffic for the same IP.
func (rl *RateLimiter) Limit(scope string, window config.RateWindow) mux.MiddlewareFunc {
	windowDuration := time.Duration(window.WindowSeconds) * time.Second

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enabled {
				next.ServeHTTP(w, r)
				return
			}

			identifier := scope + ":" + clientIP(r)
			decision := rl.cache.CheckRateLimit(r.Context(), identifier, window.Max, windowDuration)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(window.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				log.Warn().Str("identifier", identifier).Msg("Rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests, please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers X-Forwarded-For (first hop) over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hop, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(hop)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
