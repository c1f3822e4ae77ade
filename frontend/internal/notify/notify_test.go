package notify

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip sets a flash on one response and replays the cookie on a new request.
func roundTrip(t *testing.T, f Flash) (*httptest.ResponseRecorder, Flash) {
	t.Helper()
	w := httptest.NewRecorder()
	SetFlash(w, f, false)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(cookies[0])
	w2 := httptest.NewRecorder()
	return w2, ConsumeFlash(w2, req, false)
}

func TestFlash(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		w, got := roundTrip(t, Flash{Notification: NewError(`Invalid "login" <credentials>`), Field: "email", Email: "user@example.com"})

		require.NotNil(t, got.Notification)
		assert.Equal(t, `Invalid "login" <credentials>`, got.Notification.Text)
		assert.True(t, got.Notification.IsError())
		assert.Equal(t, "email", got.Field)
		assert.Equal(t, "user@example.com", got.Email)

		// consuming clears the cookie
		cleared := w.Result().Cookies()
		require.Len(t, cleared, 1)
		assert.Equal(t, -1, cleared[0].MaxAge)
	})

	t.Run("expired notification is dropped", func(t *testing.T) {
		n := NewSuccess("old news")
		n.ExpiresAt = time.Now().Add(-time.Second)
		_, got := roundTrip(t, Flash{Notification: n, Email: "user@example.com"})

		assert.Nil(t, got.Notification)
		assert.Equal(t, "user@example.com", got.Email)
	})

	t.Run("no cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		got := ConsumeFlash(w, httptest.NewRequest(http.MethodGet, "/", nil), false)
		assert.Equal(t, Flash{}, got)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("garbled cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: flashCookieName, Value: "%%%not-base64"})
		got := ConsumeFlash(httptest.NewRecorder(), req, false)
		assert.Equal(t, Flash{}, got)
	})
}

func TestNavigate(t *testing.T) {
	w := httptest.NewRecorder()
	Navigate(w, "/", time.Second)
	assert.Equal(t, "1; url=/", w.Header().Get("Refresh"))

	w = httptest.NewRecorder()
	Navigate(w, "/login", 1500*time.Millisecond)
	assert.Equal(t, "2; url=/login", w.Header().Get("Refresh"))

	w = httptest.NewRecorder()
	Navigate(w, "/login", 0)
	assert.Equal(t, "0; url=/login", w.Header().Get("Refresh"))
}

func TestNotificationKinds(t *testing.T) {
	assert.Equal(t, Success, NewSuccess("ok").Kind)
	assert.False(t, NewSuccess("ok").IsError())
	var n *Notification
	assert.False(t, n.IsError())
}
