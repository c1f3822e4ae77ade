// Package auth binds the auth service to individual visitors. A Client is
// shared by the whole process; Client.For(sid) gives the per-visitor view
// with the usual getSession / onAuthStateChange / signIn / signUp / signOut
// operations.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/apiclient"
	"github.com/itchan-dev/authgate/frontend/internal/storage"
	"github.com/itchan-dev/authgate/shared/domain"
	"github.com/itchan-dev/authgate/shared/jwt"
	"github.com/itchan-dev/authgate/shared/logger"
	"golang.org/x/sync/singleflight"
)

// Backend is the subset of the auth service API the client needs.
// *apiclient.APIClient implements it.
type Backend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Token, error)
	SignUp(ctx context.Context, email, password string) (*domain.SignUpResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.Token, error)
	Logout(ctx context.Context, accessToken string) error
}

type Client struct {
	backend       Backend
	sessions      storage.Sessions
	verifier      jwt.Verifier
	refreshMargin time.Duration
	now           func() time.Time

	refreshes singleflight.Group
	seq       atomic.Uint64

	mu   sync.Mutex
	hubs map[string]*hub
}

type Option func(*Client)

// WithVerifier enables local verification of stored access tokens.
func WithVerifier(v jwt.Verifier) Option {
	return func(c *Client) { c.verifier = v }
}

// WithRefreshMargin refreshes tokens that expire within d.
func WithRefreshMargin(d time.Duration) Option {
	return func(c *Client) { c.refreshMargin = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(backend Backend, sessions storage.Sessions, opts ...Option) *Client {
	c := &Client{
		backend:       backend,
		sessions:      sessions,
		refreshMargin: time.Minute,
		now:           time.Now,
		hubs:          make(map[string]*hub),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RefreshMargin is how long before expiry a session gets refreshed.
func (c *Client) RefreshMargin() time.Duration { return c.refreshMargin }

// For returns the view of the auth service bound to one visitor.
func (c *Client) For(sid string) *Visitor {
	return &Visitor{c: c, sid: sid}
}

func (c *Client) subscribe(sid string, fn func(Event)) *Subscription {
	c.mu.Lock()
	h, ok := c.hubs[sid]
	if !ok {
		h = &hub{listeners: make(map[uint64]*listener)}
		c.hubs[sid] = h
	}
	id, l := h.add(fn)
	c.mu.Unlock()

	return &Subscription{cancel: func() {
		c.mu.Lock()
		h.mu.Lock()
		delete(h.listeners, id)
		if len(h.listeners) == 0 && c.hubs[sid] == h {
			delete(c.hubs, sid)
		}
		h.mu.Unlock()
		c.mu.Unlock()
		// waits for an in-flight delivery to this listener
		l.close()
	}}
}

func (c *Client) emit(sid string, kind EventKind, tok *domain.Token) {
	authEventsTotal.WithLabelValues(string(kind)).Inc()

	c.mu.Lock()
	h := c.hubs[sid]
	// Seq is taken under c.mu so events of one visitor are numbered in emit order.
	e := Event{Kind: kind, Seq: c.seq.Add(1), Token: tok}
	c.mu.Unlock()

	if h == nil {
		return
	}
	for _, l := range h.snapshot() {
		l.deliver(e)
	}
}

func (c *Client) listenerCount(sid string) int {
	c.mu.Lock()
	h := c.hubs[sid]
	c.mu.Unlock()
	if h == nil {
		return 0
	}
	return len(h.snapshot())
}

// getSession loads the stored token and refreshes it when needed.
func (c *Client) getSession(ctx context.Context, sid string) (*domain.Token, error) {
	tok, err := c.sessions.Load(ctx, sid)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	expired := false
	if c.verifier != nil {
		if _, err := c.verifier.Verify(tok.AccessToken); err != nil {
			if !jwt.IsExpired(err) {
				logger.Log.Warn("stored access token rejected", "error", err)
				c.dropSession(ctx, sid)
				return nil, nil
			}
			expired = true
		}
	}

	if !expired && !tok.ExpiresWithin(c.now(), c.refreshMargin) {
		return tok, nil
	}
	return c.refresh(ctx, sid, tok)
}

// refresh is deduplicated per visitor: concurrent callers share one backend call.
func (c *Client) refresh(ctx context.Context, sid string, current *domain.Token) (*domain.Token, error) {
	v, err, _ := c.refreshes.Do(sid, func() (interface{}, error) {
		fresh, err := c.backend.RefreshToken(context.WithoutCancel(ctx), current.RefreshToken)
		if err != nil {
			return nil, err
		}
		if err := c.sessions.Save(ctx, sid, *fresh); err != nil {
			return nil, fmt.Errorf("saving refreshed session: %w", err)
		}
		c.emit(sid, TokenRefreshed, fresh)
		return fresh, nil
	})
	if err == nil {
		return v.(*domain.Token), nil
	}

	if apiclient.IsTransient(err) {
		// Keep the visitor signed in while the token is still usable.
		if current.ExpiresAt.After(c.now()) {
			logger.Log.Warn("token refresh failed, using current token", "error", err)
			return current, nil
		}
		return nil, fmt.Errorf("refreshing session: %w", err)
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		logger.Log.Info("refresh token rejected, signing out", "code", apiErr.Code)
		c.dropSession(ctx, sid)
		return nil, nil
	}
	return nil, err
}

func (c *Client) dropSession(ctx context.Context, sid string) {
	if err := c.sessions.Delete(ctx, sid); err != nil {
		logger.Log.Error("deleting session", "error", err)
	}
	c.emit(sid, SignedOut, nil)
}
