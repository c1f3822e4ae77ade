package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	visitorCookieName = "sid"
	visitorCookieAge  = 365 * 24 * 60 * 60
)

type visitorContextKey string

const visitorIDContextKey visitorContextKey = "sid"

// Visitor makes sure every request carries a visitor id. The id only names
// the browser; it grants nothing by itself.
func Visitor(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(visitorCookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     visitorCookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   visitorCookieAge,
					HttpOnly: true,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), visitorIDContextKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VisitorID returns the id set by Visitor, empty outside of it.
func VisitorID(ctx context.Context) string {
	sid, _ := ctx.Value(visitorIDContextKey).(string)
	return sid
}

// WithVisitorID is used by tests and background jobs acting for a visitor.
func WithVisitorID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, visitorIDContextKey, sid)
}
