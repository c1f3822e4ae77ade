package router

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/apiclient"
	"github.com/itchan-dev/authgate/frontend/internal/auth"
	"github.com/itchan-dev/authgate/frontend/internal/handler"
	"github.com/itchan-dev/authgate/frontend/internal/markdown"
	fmw "github.com/itchan-dev/authgate/frontend/internal/middleware"
	"github.com/itchan-dev/authgate/frontend/internal/session"
	"github.com/itchan-dev/authgate/frontend/internal/setup"
	"github.com/itchan-dev/authgate/frontend/internal/storage/memory"
	"github.com/itchan-dev/authgate/frontend/web"
	"github.com/itchan-dev/authgate/shared/config"
	"github.com/itchan-dev/authgate/shared/domain"
	"github.com/itchan-dev/authgate/shared/middleware/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct{}

func (stubBackend) SignInWithPassword(_ context.Context, email, _ string) (*domain.Token, error) {
	return &domain.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domain.User{Id: "u1", Email: email},
	}, nil
}

func (stubBackend) SignUp(_ context.Context, email, _ string) (*domain.SignUpResult, error) {
	return &domain.SignUpResult{User: &domain.User{Id: "u2", Email: email, Identities: []domain.Identity{{Id: "i1"}}}}, nil
}

func (stubBackend) RefreshToken(context.Context, string) (*domain.Token, error) {
	return nil, &apiclient.APIError{Status: http.StatusBadRequest, Message: "Invalid Refresh Token"}
}

func (stubBackend) Logout(context.Context, string) error { return nil }

type browser struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newBrowser(t *testing.T) *browser {
	t.Helper()
	emails := ratelimiter.PerMinute(600, 100)
	t.Cleanup(emails.Stop)
	return newBrowserWithEmailLimiter(t, emails)
}

func newBrowserWithEmailLimiter(t *testing.T, emails *ratelimiter.UserRateLimiter) *browser {
	t.Helper()
	cfg := config.Public{
		Notification: config.Notification{DisplayFor: 5 * time.Second, NavigateAfter: time.Second},
		Home:         config.Home{WelcomeMarkdown: "Welcome"},
	}

	store := memory.New(time.Hour)
	t.Cleanup(func() { store.Close() })
	client := auth.New(stubBackend{}, store)
	registry := session.NewRegistry(func(sid string) session.Source { return client.For(sid) }, time.Minute)
	t.Cleanup(registry.Close)

	h := handler.New(web.MustLoadTemplates(web.Templates()), cfg, client, nil, markdown.New(), nil)
	g := fmw.NewGuard(registry, time.Second, http.HandlerFunc(h.LoadingHandler))
	h.Sessions = g

	limiter := ratelimiter.PerMinute(600, 100)
	t.Cleanup(limiter.Stop)

	server := httptest.NewServer(SetupRouter(&setup.Dependencies{
		Handler:      h,
		Guard:        g,
		Registry:     registry,
		FormLimiter:  limiter,
		EmailLimiter: emails,
		Public:       cfg,
	}))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:      t,
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.server.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) csrfToken() string {
	b.t.Helper()
	u, err := url.Parse(b.server.URL)
	require.NoError(b.t, err)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == "csrf_token" {
			return c.Value
		}
	}
	b.t.Fatal("no csrf cookie")
	return ""
}

func TestSignInFlow(t *testing.T) {
	b := newBrowser(t)

	resp, _ := b.get("/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, body := b.get("/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Contains(t, body, `name="csrf_token"`)

	resp, body = b.post("/login", url.Values{
		"csrf_token": {b.csrfToken()},
		"email":      {"user@example.com"},
		"password":   {"password123"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1; url=/", resp.Header.Get("Refresh"))
	assert.Contains(t, body, "Login successful!")

	resp, body = b.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "user@example.com")

	resp, _ = b.get("/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = b.get("/signup")
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = b.get("/no/such/page")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = b.post("/logout", url.Values{"csrf_token": {b.csrfToken()}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = b.get("/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestUnknownPathSignedOut(t *testing.T) {
	b := newBrowser(t)

	resp, _ := b.get("/definitely-not-a-page")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	// method mismatch on a known path resolves the same way
	resp, _ = b.get("/logout")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestFormWithoutCSRF(t *testing.T) {
	b := newBrowser(t)
	b.get("/login")

	resp, _ := b.post("/login", url.Values{"email": {"user@example.com"}, "password": {"password123"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, body := b.get("/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, fmw.MsgFormExpired)
}

func TestFormPostsLimitedPerEmail(t *testing.T) {
	emails := ratelimiter.New(0.001, 2, time.Hour)
	t.Cleanup(emails.Stop)
	b := newBrowserWithEmailLimiter(t, emails)
	b.get("/login")

	login := func(email string) int {
		// too short a password is refused before reaching the backend
		resp, _ := b.post("/login", url.Values{
			"csrf_token": {b.csrfToken()},
			"email":      {email},
			"password":   {"short"},
		})
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusSeeOther, login("victim@example.com"))
	assert.Equal(t, http.StatusSeeOther, login("Victim@Example.com"))
	assert.Equal(t, http.StatusTooManyRequests, login(" victim@example.com"))
	assert.Equal(t, http.StatusSeeOther, login("someone@example.com"))

	resp, _ := b.post("/signup", url.Values{
		"csrf_token":       {b.csrfToken()},
		"email":            {"victim@example.com"},
		"password":         {"Str0ng!pass"},
		"confirm_password": {"Str0ng!pass"},
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestSignupFlow(t *testing.T) {
	b := newBrowser(t)
	b.get("/signup")

	resp, body := b.post("/signup", url.Values{
		"csrf_token":       {b.csrfToken()},
		"email":            {"new@example.com"},
		"password":         {"Str0ng!pass"},
		"confirm_password": {"Str0ng!pass"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1; url=/login", resp.Header.Get("Refresh"))
	assert.Contains(t, body, "Signup complete!")
}

func TestInfrastructureRoutes(t *testing.T) {
	b := newBrowser(t)

	resp, body := b.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, body = b.get("/static/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/api/validate/signup")

	resp, _ = b.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = b.get("/api/session")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"none"`)
}
