package middleware

import (
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/carevault/access-server-go/internal/config"
	"github.com/carevault/access-server-go/internal/service"
)

// RedisRateLimitMiddleware throttles authenticated routes per actor id.
type RedisRateLimitMiddleware struct {
	limiter *service.RateLimiter
	limit   int
}

func NewRedisRateLimitMiddleware(redisClient *redis.Client) *RedisRateLimitMiddleware {
	return &RedisRateLimitMiddleware{
		limiter: service.NewRateLimiter(redisClient),
		limit:   config.DefaultRateLimitPerMin,
	}
}

func (m *RedisRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		allowed, resetAt := m.limiter.CheckValidationLimit(r.Context(), identity.UserID)
		if !allowed {
			w.Header().Set("Retry-After", strconv.FormatInt(resetAt.Unix(), 10))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
