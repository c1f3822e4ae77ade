package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFMiddleware(t *testing.T) {
	t.Run("GenerateCSRFToken", func(t *testing.T) {
		var seen string
		handler := GenerateCSRFToken(CSRFConfig{SecureCookies: false})(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetCSRFTokenFromContext(r)
				w.WriteHeader(http.StatusOK)
			}),
		)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.NotEmpty(t, seen)
		var cookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == "csrf_token" {
				cookie = c
			}
		}
		require.NotNil(t, cookie, "Expected CSRF cookie to be set")
		assert.Equal(t, seen, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("GenerateCSRFToken keeps existing token", func(t *testing.T) {
		var seen string
		handler := GenerateCSRFToken(CSRFConfig{})(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetCSRFTokenFromContext(r)
			}),
		)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "existing", seen)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("ValidateCSRFToken", func(t *testing.T) {
		token := "test-token-123"

		tests := []struct {
			name           string
			method         string
			path           string
			cookie         *http.Cookie
			formToken      string
			headerToken    string
			expectedStatus int
		}{
			{
				name:           "valid POST request",
				method:         http.MethodPost,
				path:           "/login",
				cookie:         &http.Cookie{Name: "csrf_token", Value: token},
				formToken:      token,
				expectedStatus: http.StatusOK,
			},
			{
				name:           "GET request (no validation)",
				method:         http.MethodGet,
				path:           "/login",
				expectedStatus: http.StatusOK,
			},
			{
				name:           "missing cookie on form",
				method:         http.MethodPost,
				path:           "/login",
				formToken:      token,
				expectedStatus: http.StatusSeeOther,
			},
			{
				name:           "missing form token",
				method:         http.MethodPost,
				path:           "/signup",
				cookie:         &http.Cookie{Name: "csrf_token", Value: token},
				expectedStatus: http.StatusSeeOther,
			},
			{
				name:           "mismatched tokens",
				method:         http.MethodPost,
				path:           "/login",
				cookie:         &http.Cookie{Name: "csrf_token", Value: token},
				formToken:      "different-token",
				expectedStatus: http.StatusSeeOther,
			},
			{
				name:           "valid header token",
				method:         http.MethodPost,
				path:           "/api/validate/signup",
				cookie:         &http.Cookie{Name: "csrf_token", Value: token},
				headerToken:    token,
				expectedStatus: http.StatusOK,
			},
			{
				name:           "api call with wrong header token",
				method:         http.MethodPost,
				path:           "/api/validate/signup",
				cookie:         &http.Cookie{Name: "csrf_token", Value: token},
				headerToken:    "different-token",
				expectedStatus: http.StatusForbidden,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				handler := ValidateCSRFToken(CSRFConfig{})(
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(http.StatusOK)
					}),
				)

				form := url.Values{}
				if tt.formToken != "" {
					form.Set("csrf_token", tt.formToken)
				}

				req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				if tt.headerToken != "" {
					req.Header.Set("X-CSRF-Token", tt.headerToken)
				}
				if tt.cookie != nil {
					req.AddCookie(tt.cookie)
				}

				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				assert.Equal(t, tt.expectedStatus, w.Code)
				if tt.expectedStatus == http.StatusSeeOther {
					assert.Equal(t, tt.path, w.Header().Get("Location"))
					assert.NotEmpty(t, w.Result().Cookies(), "expected a flash cookie")
				}
			})
		}
	})
}
