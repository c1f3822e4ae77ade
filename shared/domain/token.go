package domain

import "time"

// Token is an authenticated session issued by the auth service: the user plus
// the access/refresh token pair.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// ExpiresWithin reports whether the access token expires before now+d.
func (t Token) ExpiresWithin(now time.Time, d time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(t.ExpiresAt)
}

// SignUpResult is what the auth service answers to a signup. Token is set
// only when the project confirms emails automatically.
type SignUpResult struct {
	User  *User
	Token *Token
}

// AlreadyRegistered detects the silent duplicate signup: success status but
// a user without linked identities (or no user at all).
func (r *SignUpResult) AlreadyRegistered() bool {
	return r == nil || r.User == nil || (r.User.Identities != nil && len(r.User.Identities) == 0)
}
