package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// DefaultRetryAfterSeconds is the Retry-After value sent with a 429.
const DefaultRetryAfterSeconds = 1

// ClientKey identifies the caller: the X-Auth-Token when present, otherwise
// the remote host.
func ClientKey(r *http.Request) (key string, authenticated bool) {
	if token := strings.TrimSpace(r.Header.Get("X-Auth-Token")); token != "" {
		return "tok:" + token, true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host, false
}

// Middleware enforces rate limits and delegates the 429 body to onLimited so
// the server can keep its own response envelope.
func Middleware(limiter *RateLimiter, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, authenticated := ClientKey(r)
			l := limiter.GetLimiter(key, authenticated)

			if !l.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				onLimited(w, r)
				return
			}

			remaining := int(l.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
