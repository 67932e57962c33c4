package api

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/studyfork/bookchat/internal/ratelimit"
)

// hashClient derives the opaque per-client key from the client IP. Raw IPs
// never reach the database or the logs.
func hashClient(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

// rateLimitMiddleware admits requests against the shared fixed-window
// limiter. Denied requests get 429 with a Retry-After hint pointing at the
// window reset.
func rateLimitMiddleware(limiter *ratelimit.Limiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := hashClient(clientIP(r, trustProxy))

			decision := limiter.Admit(r.Context(), key)
			if !decision.Allowed {
				logger.Warn("rate limit exceeded",
					"client", key[:12],
					"path", r.URL.Path,
				)
				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, CodeRateLimitExceeded,
					"rate limit exceeded, try again later", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
