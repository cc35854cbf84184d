package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/handlers/render"
	"github.com/nkiryanov/earlypulse/internal/ratelimit"
)

type limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
	Capacity() int
}

// Token bucket per client ip and route.
// Limiter failures let the request through
func RateLimit(lim limiter, route string, l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := lim.Allow(r.Context(), clientIP(r)+":"+route)
			if err != nil {
				l.Warn("rate limiter is unavailable", "route", route, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(lim.Capacity()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				render.AppError(w, apperrors.ErrRateLimited, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Proxy headers are not trusted
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
