// Package notify carries the single user notification (snackbar) of a page
// and the delayed navigation that follows a successful form.
package notify

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/itchan-dev/authgate/shared/logger"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
)

const (
	flashCookieName = "flash"
	flashTTL        = time.Minute
)

type Notification struct {
	Text      string    `json:"text"`
	Kind      Kind      `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewSuccess(text string) *Notification {
	return &Notification{Text: text, Kind: Success, ExpiresAt: time.Now().Add(flashTTL)}
}

func NewError(text string) *Notification {
	return &Notification{Text: text, Kind: Error, ExpiresAt: time.Now().Add(flashTTL)}
}

func (n *Notification) IsError() bool { return n != nil && n.Kind == Error }

// Flash is what survives a post/redirect/get round trip: the notification,
// the field to mark invalid and the email to re-fill.
type Flash struct {
	Notification *Notification `json:"n,omitempty"`
	Field        string        `json:"f,omitempty"`
	Email        string        `json:"e,omitempty"`
}

func encode(f Flash) (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decode(value string) (Flash, error) {
	var f Flash
	b, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return f, fmt.Errorf("decoding flash: %w", err)
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("decoding flash: %w", err)
	}
	return f, nil
}

// SetFlash replaces any pending flash.
func SetFlash(w http.ResponseWriter, f Flash, secure bool) {
	value, err := encode(f)
	if err != nil {
		logger.Log.Error("encoding flash", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(flashTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ConsumeFlash reads and clears the pending flash. Expired notifications are
// dropped; a missing or garbled cookie yields an empty Flash.
func ConsumeFlash(w http.ResponseWriter, r *http.Request, secure bool) Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return Flash{}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	f, err := decode(cookie.Value)
	if err != nil {
		logger.Log.Debug("discarding flash", "error", err)
		return Flash{}
	}
	if f.Notification != nil && time.Now().After(f.Notification.ExpiresAt) {
		f.Notification = nil
	}
	return f
}

// Navigate makes the browser load target after the given delay. Leaving
// the page earlier cancels it.
func Navigate(w http.ResponseWriter, target string, after time.Duration) {
	secs := int(math.Ceil(after.Seconds()))
	w.Header().Set("Refresh", fmt.Sprintf("%d; url=%s", max(secs, 0), (&url.URL{Path: target}).String()))
}
