// Package pg stores visitor sessions in PostgreSQL so they survive restarts
// and can be shared by several frontend replicas. Tokens are sealed before
// they hit the table.
package pg

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/storage"
	"github.com/itchan-dev/authgate/shared/crypto"
	"github.com/itchan-dev/authgate/shared/domain"
	"github.com/itchan-dev/authgate/shared/logger"
	sharedpg "github.com/itchan-dev/authgate/shared/storage/pg"
)

//go:embed migrations/init.sql
var schema string

// SealPurpose separates the session sealing key from other uses of the same secret.
const SealPurpose = "authgate visitor session v1"

type Storage struct {
	db     *sql.DB
	sealer *crypto.Sealer
	ttl    time.Duration
}

var _ storage.Sessions = (*Storage)(nil)

func New(db *sql.DB, sealer *crypto.Sealer, ttl time.Duration) *Storage {
	return &Storage{db: db, sealer: sealer, ttl: ttl}
}

// Migrate creates the sessions table if needed.
func Migrate(ctx context.Context, db *sql.DB) error {
	return sharedpg.WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		return nil
	})
}

func (s *Storage) Load(ctx context.Context, sid string) (*domain.Token, error) {
	return load(ctx, s.db, s.sealer, sid)
}

func load(ctx context.Context, q sharedpg.Querier, sealer *crypto.Sealer, sid string) (*domain.Token, error) {
	var sealed []byte
	err := q.QueryRowContext(ctx,
		`SELECT sealed FROM visitor_sessions WHERE sid = $1 AND expires_at > now()`, sid,
	).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	plain, err := sealer.Open(sealed, []byte(sid))
	if err != nil {
		// Secret rotated or row tampered with: treat as signed out.
		logger.Log.Warn("discarding unreadable session", "error", err)
		return nil, storage.ErrNotFound
	}

	var tok domain.Token
	if err := json.Unmarshal(plain, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &tok, nil
}

func (s *Storage) Save(ctx context.Context, sid string, tok domain.Token) error {
	plain, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	sealed, err := s.sealer.Seal(plain, []byte(sid))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO visitor_sessions (sid, user_id, sealed, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (sid) DO UPDATE
		SET user_id = EXCLUDED.user_id, sealed = EXCLUDED.sealed,
		    expires_at = EXCLUDED.expires_at, updated_at = now()`,
		sid, tok.User.Id, sealed, time.Now().Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, sid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM visitor_sessions WHERE sid = $1`, sid); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes rows past their expiry and returns how many were removed.
func (s *Storage) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitor_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// Run purges expired sessions every interval until ctx is done.
func (s *Storage) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				logger.Log.Error("purging expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Log.Debug("purged expired sessions", "count", n)
			}
		}
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
