package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Rrens/groqchat/internal/api/response"
	"github.com/Rrens/groqchat/internal/repository/redis"
	"github.com/rs/zerolog/log"
)

// Limiter decides whether a client may submit another message
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (redis.RateLimit, error)
}

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	limiter Limiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit applies rate limiting based on the client key
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientKey, ok := GetClientKey(r.Context())
		if !ok {
			response.Unauthorized(w, "missing chat session")
			return
		}

		rl, err := m.limiter.Allow(r.Context(), clientKey)
		if err != nil {
			// If rate limiter fails, allow the request but log the error
			log.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.ResetAt.Unix(), 10))

		if !rl.Allowed {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
