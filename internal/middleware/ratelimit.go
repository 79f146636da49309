package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"orghub-backend/internal/cache"
)

const (
	authLimit  = 5
	authWindow = time.Minute
)

// RateLimitAuth caps login/register attempts per client IP. The limiter
// fails open: a cache error never blocks the request.
func RateLimitAuth(cacheClient cache.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			key := "rl:auth:" + ip
			count, err := cacheClient.IncrWithTTL(key, authWindow)
			if err == nil && count > authLimit {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
