// Package guard decides what a route shows for a given session. The
// decisions are pure; the HTTP side lives in the middleware package.
package guard

import (
	"context"

	"github.com/itchan-dev/authgate/frontend/internal/session"
	"github.com/itchan-dev/authgate/shared/domain"
)

const (
	LoginPath  = "/login"
	SignupPath = "/signup"
	HomePath   = "/"
)

type Outcome int

const (
	Loading Outcome = iota
	Render
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "loading"
	}
}

type Decision struct {
	Outcome  Outcome
	Location string // set for Redirect
}

// Policy maps a session to a decision.
type Policy func(session.Session) Decision

func loading() Decision { return Decision{Outcome: Loading} }
func render() Decision { return Decision{Outcome: Render} }
func redirect(location string) Decision { return Decision{Outcome: Redirect, Location: location} }

// Protected admits signed in visitors only.
func Protected(s session.Session) Decision {
	switch s.Status() {
	case session.StatusNone:
		return redirect(LoginPath)
	case session.StatusPresent:
		return render()
	default:
		return loading()
	}
}

// AuthLayout wraps the login and signup pages: signed in visitors have
// nothing to do there.
func AuthLayout(s session.Session) Decision {
	switch s.Status() {
	case session.StatusPresent:
		return redirect(HomePath)
	case session.StatusNone:
		return render()
	default:
		return loading()
	}
}

// Fallback handles every unknown path.
func Fallback(s session.Session) Decision {
	switch s.Status() {
	case session.StatusPresent:
		return redirect(HomePath)
	case session.StatusNone:
		return redirect(LoginPath)
	default:
		return loading()
	}
}

type ctxKey int

const sessionKey ctxKey = 0

// WithSession stores the session a guard admitted the request with.
func WithSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session a guard admitted the request with,
// or Unknown for unguarded requests.
func SessionFromContext(ctx context.Context) session.Session {
	s, _ := ctx.Value(sessionKey).(session.Session)
	return s
}

// UserFromContext returns the signed in user, nil when not signed in.
func UserFromContext(ctx context.Context) *domain.User {
	tok, ok := SessionFromContext(ctx).Token()
	if !ok {
		return nil
	}
	return &tok.User
}
