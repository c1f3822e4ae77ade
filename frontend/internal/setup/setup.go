package setup

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/apiclient"
	"github.com/itchan-dev/authgate/frontend/internal/auth"
	"github.com/itchan-dev/authgate/frontend/internal/handler"
	"github.com/itchan-dev/authgate/frontend/internal/markdown"
	"github.com/itchan-dev/authgate/frontend/internal/middleware"
	"github.com/itchan-dev/authgate/frontend/internal/session"
	"github.com/itchan-dev/authgate/frontend/internal/storage"
	"github.com/itchan-dev/authgate/frontend/internal/storage/memory"
	pgstorage "github.com/itchan-dev/authgate/frontend/internal/storage/pg"
	"github.com/itchan-dev/authgate/frontend/web"
	"github.com/itchan-dev/authgate/shared/config"
	"github.com/itchan-dev/authgate/shared/crypto"
	"github.com/itchan-dev/authgate/shared/jwt"
	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/itchan-dev/authgate/shared/middleware/ratelimiter"
	sharedpg "github.com/itchan-dev/authgate/shared/storage/pg"
)

const (
	devTemplatesPath = "frontend/web/templates"
	// access tokens of the auth service live an hour unless configured otherwise
	accessTokenTTL = time.Hour
)

type Dependencies struct {
	Handler     *handler.Handler
	Guard       *middleware.Guard
	Registry    *session.Registry
	FormLimiter  *ratelimiter.UserRateLimiter // form posts per client IP
	EmailLimiter *ratelimiter.UserRateLimiter // form posts per submitted email
	Public      config.Public
	PgStorage   *pgstorage.Storage // nil unless sessions are kept in postgres

	closers []func()
}

func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{Public: cfg.Public}

	sessions, err := deps.setupStorage(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	apiClient := apiclient.New(cfg.Public.Auth.URL, cfg.Private.AuthAnonKey, cfg.Public.Auth.RequestTimeout)

	opts := []auth.Option{auth.WithRefreshMargin(cfg.Public.Auth.RefreshMargin)}
	if cfg.Private.JwtSecret != "" {
		opts = append(opts, auth.WithVerifier(jwt.New(cfg.Private.JwtSecret, accessTokenTTL)))
	}
	authClient := auth.New(apiClient, sessions, opts...)

	deps.Registry = session.NewRegistry(func(sid string) session.Source {
		return authClient.For(sid)
	}, cfg.Public.Session.StoreIdleTTL,
		session.WithQueryTimeout(cfg.Public.Auth.RequestTimeout),
		session.WithRefreshMargin(cfg.Public.Auth.RefreshMargin),
	)
	deps.closers = append(deps.closers, deps.Registry.Close)

	templates, err := web.LoadTemplates(templatesFS(cfg.Public.Env))
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	var health handler.HealthChecker
	if deps.PgStorage != nil {
		health = deps.PgStorage
	}
	h := handler.New(templates, cfg.Public, authClient, nil, markdown.New(), health)
	deps.Guard = middleware.NewGuard(deps.Registry, cfg.Public.Auth.ResolveTimeout, http.HandlerFunc(h.LoadingHandler))
	h.Sessions = deps.Guard
	deps.Handler = h

	deps.FormLimiter = ratelimiter.PerMinute(cfg.Public.RateLimit.FormsPerMinute, cfg.Public.RateLimit.Burst)
	deps.EmailLimiter = ratelimiter.PerMinute(cfg.Public.RateLimit.EmailsPerMinute, cfg.Public.RateLimit.EmailBurst)
	deps.closers = append(deps.closers, deps.FormLimiter.Stop, deps.EmailLimiter.Stop)

	return deps, nil
}

func (d *Dependencies) setupStorage(ctx context.Context, cfg *config.Config) (storage.Sessions, error) {
	if cfg.Public.Session.Storage != config.StoragePostgres {
		s := memory.New(cfg.Public.Session.TTL)
		d.closers = append(d.closers, func() { _ = s.Close() })
		return s, nil
	}

	db, err := sharedpg.Connect(ctx, sharedpg.DSN(cfg), sharedpg.LightweightConnectionConfig())
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() { closeDB(db) })

	if err := pgstorage.Migrate(ctx, db); err != nil {
		return nil, err
	}
	sealer, err := crypto.NewSealer(cfg.Private.StorageSecret, pgstorage.SealPurpose)
	if err != nil {
		return nil, err
	}
	d.PgStorage = pgstorage.New(db, sealer, cfg.Public.Session.TTL)
	return d.PgStorage, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Log.Error("closing database", "error", err)
	}
}

// templatesFS serves templates from disk in development so they can be
// edited without a rebuild.
func templatesFS(env string) fs.FS {
	if env == "development" {
		if _, err := os.Stat(devTemplatesPath); err == nil {
			return os.DirFS(devTemplatesPath)
		}
	}
	return web.Templates()
}

// Close releases everything in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
