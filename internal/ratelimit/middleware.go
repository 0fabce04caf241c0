package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/decidefyi/decide/internal/common/logging"
)

// Checker is the limiter surface the middleware needs. Both the in-memory
// Limiter and the Redis-backed RedisLimiter satisfy it.
type Checker interface {
	Check(identity string) Result
}

// Middleware returns an HTTP middleware that checks the limiter before any
// work is done. Quota headers are set on every response; denied requests
// receive 429 with a Retry-After header and never reach the next handler.
func Middleware(checker Checker, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			identity := ClientIP(r)
			result := checker.Check(identity)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.Reset.UnixMilli()))

			if !result.Allowed {
				retryAfter := int(result.RetryAfter.Seconds())
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error":       "rate limit exceeded",
					"retry_after": retryAfter,
				})
				logging.Warn("rate limit exceeded",
					logging.String("identity", identity),
					logging.String("path", r.URL.Path),
					logging.Int("retry_after", retryAfter),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP normalizes the caller identity for a request: the first address
// in the X-Forwarded-For chain, else X-Real-IP, else the host part of
// RemoteAddr. The limiter itself never normalizes.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.Split(forwarded, ",")[0]
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
