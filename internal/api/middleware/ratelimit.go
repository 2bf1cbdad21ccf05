package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gometeo/weatherlookup/internal/cache"
)

const rateLimitedMessage = "Too many requests from this IP, please try again later."

// Limiter is implemented by cache.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (cache.RateLimitResult, error)
	Limit() int
}

// RateLimit caps requests per client IP. The IP is the TCP peer unless
// trustProxy is set. When the limiter store fails the request is let
// through.
func RateLimit(limiter Limiter, trustProxy bool, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)

			res, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "ip", ip, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				h.Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(rateLimitedMessage))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is RemoteAddr without its port. With trustProxy the first
// X-Forwarded-For entry wins; the client sets that header, so it is only
// meaningful when a proxy in front rewrites it.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
