package auth

import (
	"context"
	"fmt"

	"github.com/itchan-dev/authgate/shared/domain"
	"github.com/itchan-dev/authgate/shared/logger"
)

// Visitor is the auth service as seen by one visitor (one sid cookie).
type Visitor struct {
	c   *Client
	sid string
}

func (v *Visitor) ID() string { return v.sid }

// GetSession is a one-shot query for the current session. A nil token with
// a nil error means the visitor is signed out.
func (v *Visitor) GetSession(ctx context.Context) (*domain.Token, error) {
	return v.c.getSession(ctx, v.sid)
}

// OnAuthStateChange registers fn for every later session change of this
// visitor. fn must not call Unsubscribe on its own subscription.
func (v *Visitor) OnAuthStateChange(fn func(Event)) *Subscription {
	return v.c.subscribe(v.sid, fn)
}

func (v *Visitor) SignInWithPassword(ctx context.Context, email, password string) (*domain.Token, error) {
	tok, err := v.c.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		authRequestsTotal.WithLabelValues("sign_in", outcome(err)).Inc()
		return nil, err
	}
	if err := v.c.sessions.Save(ctx, v.sid, *tok); err != nil {
		authRequestsTotal.WithLabelValues("sign_in", "error").Inc()
		return nil, fmt.Errorf("saving session: %w", err)
	}
	authRequestsTotal.WithLabelValues("sign_in", "ok").Inc()
	v.c.emit(v.sid, SignedIn, tok)
	return tok, nil
}

// SignUp registers an account. The visitor is signed in right away only when
// the auth service confirms emails automatically.
func (v *Visitor) SignUp(ctx context.Context, email, password string) (*domain.SignUpResult, error) {
	res, err := v.c.backend.SignUp(ctx, email, password)
	if err != nil {
		authRequestsTotal.WithLabelValues("sign_up", outcome(err)).Inc()
		return nil, err
	}
	authRequestsTotal.WithLabelValues("sign_up", "ok").Inc()

	if res.Token != nil && !res.AlreadyRegistered() {
		if err := v.c.sessions.Save(ctx, v.sid, *res.Token); err != nil {
			return nil, fmt.Errorf("saving session: %w", err)
		}
		v.c.emit(v.sid, SignedIn, res.Token)
	}
	return res, nil
}

// SignOut always clears the local session, even when the auth service
// cannot be told about it.
func (v *Visitor) SignOut(ctx context.Context) error {
	tok, err := v.c.sessions.Load(ctx, v.sid)
	if err == nil && tok != nil {
		if err := v.c.backend.Logout(ctx, tok.AccessToken); err != nil {
			logger.Log.Warn("remote logout failed", "error", err)
		}
	}

	if err := v.c.sessions.Delete(ctx, v.sid); err != nil {
		authRequestsTotal.WithLabelValues("sign_out", "error").Inc()
		return fmt.Errorf("deleting session: %w", err)
	}
	authRequestsTotal.WithLabelValues("sign_out", "ok").Inc()
	v.c.emit(v.sid, SignedOut, nil)
	return nil
}
