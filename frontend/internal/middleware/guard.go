package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/guard"
	"github.com/itchan-dev/authgate/frontend/internal/session"
	"github.com/itchan-dev/authgate/shared/logger"
)

// Guard admits requests according to the visitor's session.
type Guard struct {
	registry       *session.Registry
	resolveTimeout time.Duration
	loading        http.Handler
}

// NewGuard returns a guard waiting at most resolveTimeout for an unresolved
// session before serving the loading page.
func NewGuard(registry *session.Registry, resolveTimeout time.Duration, loading http.Handler) *Guard {
	return &Guard{
		registry:       registry,
		resolveTimeout: resolveTimeout,
		loading:        loading,
	}
}

// With returns middleware applying policy to every request.
func (g *Guard) With(policy guard.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := VisitorID(r.Context())
			if sid == "" {
				logger.Log.Error("guard used without visitor middleware", "path", r.URL.Path)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			sess := g.resolve(r.Context(), g.registry.Acquire(sid))
			decision := policy(sess)

			switch decision.Outcome {
			case guard.Render:
				next.ServeHTTP(w, r.WithContext(guard.WithSession(r.Context(), sess)))
			case guard.Redirect:
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			default:
				w.Header().Set("Cache-Control", "no-store")
				w.Header().Set("Refresh", "1")
				g.loading.ServeHTTP(w, r)
			}
		})
	}
}

// Session resolves the visitor's session the way guarded routes do, without
// applying a policy. Requests without a visitor id are Unknown.
func (g *Guard) Session(r *http.Request) session.Session {
	sid := VisitorID(r.Context())
	if sid == "" {
		return session.Unknown()
	}
	return g.resolve(r.Context(), g.registry.Acquire(sid))
}

// resolve holds a subscription on store while waiting for the session to
// leave Unknown. The subscription is taken before the first look at the
// session so no change can slip in between.
func (g *Guard) resolve(ctx context.Context, store *session.Store) session.Session {
	changed := make(chan struct{}, 1)
	sub := store.Subscribe(func(session.Session) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(ctx, g.resolveTimeout)
	defer cancel()

	for {
		if sess := store.Current(); sess.Resolved() {
			return sess
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return store.Current()
		}
	}
}
