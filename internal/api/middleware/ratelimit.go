package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AgenticDao/CryptoA2A/internal/metrics"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(r *http.Request) string
}

// RateLimiter implements fixed-window rate limiting backed by Redis.
// Public endpoints are keyed by client IP; authenticated endpoints are
// keyed by agent id, so the agent-keyed middleware must run after
// RequireAuth has loaded the agent into the context.
type RateLimiter struct {
	client       *redis.Client
	publicLimits map[string]RateLimit
	agentLimits  map[string]RateLimit
	logger       zerolog.Logger
}

// NewRateLimiter creates a new rate limiter with per-endpoint limits.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		publicLimits: map[string]RateLimit{
			"POST /register":       {10, time.Hour, ipKey},
			"POST /auth/challenge": {30, time.Minute, ipKey},
			"POST /auth/token":     {30, time.Minute, ipKey},
			"GET /agents/":         {100, time.Minute, ipKey},
		},
		agentLimits: map[string]RateLimit{
			"POST /envelopes":     {60, time.Minute, agentKey},
			"GET /envelopes":      {120, time.Minute, agentKey},
			"POST /transactions":  {30, time.Minute, agentKey},
			"GET /transactions":   {120, time.Minute, agentKey},
			"GET /transactions/":  {120, time.Minute, agentKey},
			"POST /transactions/": {30, time.Minute, agentKey},
		},
	}
}

// Public enforces IP-keyed limits on unauthenticated endpoints.
func (rl *RateLimiter) Public(next http.Handler) http.Handler {
	return rl.enforce(rl.publicLimits, next)
}

// Authenticated enforces agent-keyed limits. Install inside the
// authenticated route group, after the auth middleware.
func (rl *RateLimiter) Authenticated(next http.Handler) http.Handler {
	return rl.enforce(rl.agentLimits, next)
}

func (rl *RateLimiter) enforce(limits map[string]RateLimit, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, pattern, ok := match(limits, r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := limitKey(pattern, limit, r)

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			// Redis being down must not take the gateway with it.
			rl.logger.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, limit.Window)
		}

		remaining := int64(limit.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit.Requests) {
			metrics.RateLimitHits.WithLabelValues(pattern).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func match(limits map[string]RateLimit, r *http.Request) (RateLimit, string, bool) {
	exact := r.Method + " " + r.URL.Path
	if limit, ok := limits[exact]; ok {
		return limit, exact, true
	}
	for pattern, limit := range limits {
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(exact, pattern) {
			return limit, pattern, true
		}
	}
	return RateLimit{}, "", false
}

// limitKey builds the Redis counter key for a matched request.
func limitKey(pattern string, limit RateLimit, r *http.Request) string {
	return fmt.Sprintf("ratelimit:%s:%s", pattern, limit.KeyFunc(r))
}

func ipKey(r *http.Request) string {
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx > 0 {
		ip = ip[:idx]
	}
	return "ip:" + ip
}

// agentKey keys by the authenticated agent id. The IP fallback only
// fires if the middleware is misinstalled ahead of auth.
func agentKey(r *http.Request) string {
	if agent := AgentFromContext(r.Context()); agent != nil {
		return "agent:" + agent.ID.String()
	}
	return ipKey(r)
}
