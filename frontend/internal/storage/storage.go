// Package storage defines where a visitor's session tokens live between
// requests. It plays the part of the auth SDK's local storage.
package storage

import (
	"context"
	"errors"

	"github.com/itchan-dev/authgate/shared/domain"
)

// ErrNotFound is returned by Load when the visitor has no stored session.
var ErrNotFound = errors.New("session not found")

// Sessions stores at most one token per visitor id.
type Sessions interface {
	Load(ctx context.Context, sid string) (*domain.Token, error)
	Save(ctx context.Context, sid string, tok domain.Token) error
	Delete(ctx context.Context, sid string) error
}
