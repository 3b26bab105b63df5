package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobnest-auth/pkg/cache"
	"jobnest-auth/pkg/response"
)

// RateLimiter caps requests per client per window, with an extended block
// once the cap is exceeded. Authenticated requests are counted per account,
// anonymous ones per IP. Fails open when redis is unavailable.
func RateLimiter(c *cache.Cache, limit int, window, blockDuration time.Duration, keyPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var clientID string
			if p, ok := GetPrincipal(ctx); ok {
				clientID = "uid:" + p.ID
			} else {
				ip := r.Header.Get("X-Forwarded-For")
				if ip == "" {
					ip = r.RemoteAddr
				}
				clientID = "ip:" + strings.Split(ip, ",")[0]
			}

			key := keyPrefix + ":" + clientID
			blockKey := key + ":blocked"

			if blocked, err := c.Get(ctx, "ratelimit", blockKey); err == nil && blocked == "1" {
				ttl, _ := c.TTL(ctx, "ratelimit", blockKey)
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "too many requests, try again in "+ttl.String())
				return
			}

			count, err := c.IncrWindow(ctx, "ratelimit", key, window)
			if err != nil {
				// Fail open, don't take traffic down with redis.
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				_ = c.Set(ctx, "ratelimit", blockKey, "1", blockDuration)
				w.Header().Set("Retry-After", strconv.Itoa(int(blockDuration.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "too many requests, blocked for "+blockDuration.String())
				return
			}

			ttl, _ := c.TTL(ctx, "ratelimit", key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

			next.ServeHTTP(w, r)
		})
	}
}
