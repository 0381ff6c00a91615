package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	res "github.com/example/contacts-api/pkg/http"
)

// Limiter is the gate consulted before a guarded operation runs. Implemented
// by the redis store; the local limiter below stands in when redis is absent.
type Limiter interface {
	Allow(ctx context.Context, clientKey, endpointKey string) (bool, error)
}

// RateLimit throttles the wrapped route per client IP. Gate errors fail open:
// an unreachable counter store must not take the endpoint down with it.
func RateLimit(limiter Limiter, endpointKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, err := limiter.Allow(c.Request().Context(), c.RealIP(), endpointKey)
			if err != nil {
				return next(c)
			}
			if !allowed {
				return res.ErrorJSON(c, http.StatusTooManyRequests, "rate_limited", "too many requests", requestIDFromCtx(c), nil)
			}
			return next(c)
		}
	}
}

// LocalLimiter is an in-process token bucket per (endpoint, client) key with
// a TTL sweep of idle entries.
type LocalLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	entries map[string]*localBucket
}

type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(limit rate.Limit, burst int, ttl time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		entries: make(map[string]*localBucket),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, clientKey, endpointKey string) (bool, error) {
	key := endpointKey + ":" + clientKey
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.entries[key]
	if b == nil {
		b = &localBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = b
	}
	b.lastSeen = now
	for k, v := range l.entries {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.entries, k)
		}
	}
	return b.lim.Allow(), nil
}
