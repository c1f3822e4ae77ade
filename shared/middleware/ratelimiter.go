package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	internal_errors "github.com/itchan-dev/authgate/shared/errors"
	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/itchan-dev/authgate/shared/middleware/ratelimiter"
	"github.com/itchan-dev/authgate/shared/utils"
)

// RateLimit rejects requests whose identity has exhausted its bucket.
// Only state-changing methods are limited; page loads pass through, as do
// requests with an empty identity.
func RateLimit(rl *ratelimiter.UserRateLimiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if identity == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.Allow(identity) {
				logger.Log.Warn("rate limit exceeded", "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter()))
				http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetIP extracts the client IP from RemoteAddr.
// Headers are not consulted here; a trusted proxy must rewrite RemoteAddr.
func GetIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// Fallback: if RemoteAddr doesn't have port, use it directly
		ip = r.RemoteAddr
	}

	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("invalid IP address: %s", ip)
	}

	return ip, nil
}

// GetFieldFromForm extracts a form field for rate limiting purposes.
// A missing field gives an empty identity so the handler can report it.
func GetFieldFromForm(field string) func(r *http.Request) (string, error) {
	return func(r *http.Request) (string, error) {
		if err := r.ParseForm(); err != nil {
			return "", internal_errors.BadRequest("failed to parse form")
		}
		return r.FormValue(field), nil
	}
}

// GetEmailFromForm keys the limiter on the submitted email, so one account
// cannot be hammered from many addresses.
func GetEmailFromForm(r *http.Request) (string, error) {
	email, err := GetFieldFromForm("email")(r)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(email)), nil
}
