package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/itchan-dev/authgate/frontend/internal/notify"
	"github.com/itchan-dev/authgate/shared/csrf"
	internal_errors "github.com/itchan-dev/authgate/shared/errors"
	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/itchan-dev/authgate/shared/utils"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"

	MsgFormExpired = "Your form has expired. Please try again."
)

type csrfContextKey string

const csrfTokenContextKey csrfContextKey = "csrf_token"

// CSRFConfig holds CSRF middleware configuration
type CSRFConfig struct {
	SecureCookies bool // Use Secure flag on cookies (requires HTTPS)
}

// GenerateCSRFToken middleware generates and sets CSRF token cookie
func GenerateCSRFToken(config CSRFConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(csrfCookieName)
			var token string

			if err != nil || cookie.Value == "" {
				token, err = csrf.GenerateToken()
				if err != nil {
					logger.Log.Error("failed to generate CSRF token", "error", err)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
					return
				}

				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   config.SecureCookies,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   86400, // 24 hours
				})
			} else {
				token = cookie.Value
			}

			ctx := context.WithValue(r.Context(), csrfTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateCSRFToken checks the double submitted token of unsafe requests.
// Forms carry it in a hidden field, scripts in the X-CSRF-Token header.
// A rejected form goes back to where it came from with an error notification;
// a rejected script call gets a plain 403.
func ValidateCSRFToken(config CSRFConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut &&
				r.Method != http.MethodPatch && r.Method != http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil {
				logger.Log.Warn("CSRF token cookie missing", "path", r.URL.Path)
				rejectCSRF(w, r, config, "CSRF token missing")
				return
			}

			token := r.Header.Get(csrfHeader)
			if token == "" {
				if err := r.ParseForm(); err != nil {
					logger.Log.Error("failed to parse form", "error", err)
					utils.WriteErrorAndStatusCode(w, internal_errors.BadRequest("Invalid form data"))
					return
				}
				token = r.PostFormValue(csrfFormField)
			}

			if !csrf.ValidateToken(cookie.Value, token) {
				logger.Log.Warn("CSRF token validation failed", "path", r.URL.Path)
				rejectCSRF(w, r, config, "CSRF token invalid")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, config CSRFConfig, reason string) {
	if isScriptRequest(r) {
		utils.WriteErrorAndStatusCode(w, internal_errors.New(http.StatusForbidden, reason))
		return
	}
	notify.SetFlash(w, notify.Flash{Notification: notify.NewError(MsgFormExpired)}, config.SecureCookies)
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}

func isScriptRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// GetCSRFTokenFromContext retrieves CSRF token from request context
func GetCSRFTokenFromContext(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenContextKey).(string)
	return token
}
