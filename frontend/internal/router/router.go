package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/itchan-dev/authgate/frontend/internal/guard"
	fmw "github.com/itchan-dev/authgate/frontend/internal/middleware"
	"github.com/itchan-dev/authgate/frontend/internal/setup"
	"github.com/itchan-dev/authgate/frontend/web"
	mw "github.com/itchan-dev/authgate/shared/middleware"
	"github.com/itchan-dev/authgate/shared/middleware/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SetupRouter wires every route. Pages go through a guard; unmatched paths
// are resolved by the fallback guard and never render content of their own.
func SetupRouter(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()
	h := deps.Handler

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger("/health", "/ready"))
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(mw.SecurityHeadersWithCSP(deps.Public.SecureCookies, mw.DefaultCSP))

	// Infrastructure routes
	r.Get("/health", h.HealthHandler)
	r.Get("/ready", h.ReadyHandler)
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	csrfCfg := fmw.CSRFConfig{SecureCookies: deps.Public.SecureCookies}

	r.Group(func(r chi.Router) {
		r.Use(fmw.Visitor(deps.Public.SecureCookies))
		r.Use(fmw.GenerateCSRFToken(csrfCfg))
		r.Use(fmw.ValidateCSRFToken(csrfCfg))
		r.Use(mw.NoStore)

		// form posts only: per IP, then per submitted email
		ipLimit := mw.RateLimit(deps.FormLimiter, mw.GetIP)
		emailLimit := mw.RateLimit(deps.EmailLimiter, mw.GetEmailFromForm)

		// Login and signup: signed in visitors are sent home
		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.With(guard.AuthLayout))
			r.Get(guard.LoginPath, h.LoginGetHandler)
			r.With(ipLimit, emailLimit).Post(guard.LoginPath, h.LoginPostHandler)
			r.Get(guard.SignupPath, h.SignupGetHandler)
			r.With(ipLimit, emailLimit).Post(guard.SignupPath, h.SignupPostHandler)
		})

		// Protected pages
		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.With(guard.Protected))
			r.Get(guard.HomePath, h.HomeHandler)
			r.Post("/logout", h.LogoutHandler)
		})

		r.Route("/api", func(r chi.Router) {
			if len(deps.Public.CORSOrigins) > 0 {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins:   deps.Public.CORSOrigins,
					AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
					AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
					AllowCredentials: true,
					MaxAge:           300,
				}))
			}
			r.Post("/validate/signup", h.ValidateSignupHandler)
			r.Get("/session", h.SessionHandler)
		})

		fallback := deps.Guard.With(guard.Fallback)(http.NotFoundHandler())
		r.NotFound(fallback.ServeHTTP)
		r.MethodNotAllowed(fallback.ServeHTTP)
	})

	if deps.Public.Otel.Enabled {
		return otelhttp.NewHandler(r, deps.Public.Otel.ServiceName)
	}
	return r
}
