// Package session holds the authoritative view of each visitor's session:
// Unknown until the first answer from the auth service, then None or Present,
// overwritten by every later change notification.
package session

import "github.com/itchan-dev/authgate/shared/domain"

type Status int

const (
	StatusUnknown Status = iota
	StatusNone
	StatusPresent
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusPresent:
		return "present"
	default:
		return "unknown"
	}
}

// Session is a tagged union. The zero value is Unknown.
type Session struct {
	status Status
	token  domain.Token
}

func Unknown() Session { return Session{} }

func None() Session { return Session{status: StatusNone} }

func Present(tok domain.Token) Session { return Session{status: StatusPresent, token: tok} }

// FromToken maps the auth service answer: nil means signed out.
func FromToken(tok *domain.Token) Session {
	if tok == nil {
		return None()
	}
	return Present(*tok)
}

func (s Session) Status() Status { return s.status }

// Token returns the held token; ok is false unless the session is Present.
func (s Session) Token() (domain.Token, bool) {
	return s.token, s.status == StatusPresent
}

// Resolved is true once the session is known to be None or Present.
func (s Session) Resolved() bool { return s.status != StatusUnknown }

func (s Session) String() string { return s.status.String() }
