package domain

import "time"

type UserId = string

// User is the identity returned by the hosted auth service.
type User struct {
	Id               UserId     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role,omitempty"`
	Identities       []Identity `json:"identities"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Identity is a credential record linked to a user. A signup answered with a
// user that has no identities means the email was already registered.
type Identity struct {
	Id       string `json:"id"`
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
}

func (u *User) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}
