package handler

import (
	"context"
	"html/template"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/authgate/frontend/internal/auth"
	"github.com/itchan-dev/authgate/frontend/internal/markdown"
	"github.com/itchan-dev/authgate/frontend/internal/session"
	"github.com/itchan-dev/authgate/shared/config"
	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/itchan-dev/authgate/shared/validation"
)

// SessionResolver answers the visitor's session for unguarded routes.
type SessionResolver interface {
	Session(r *http.Request) session.Session
}

// HealthChecker is implemented by storage backends that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Templates     map[string]*template.Template
	Public        config.Public
	Auth          *auth.Client
	Sessions      SessionResolver
	TextProcessor *markdown.TextProcessor
	Validate      *validator.Validate
	Health        HealthChecker // nil when storage needs no checking

	welcome template.HTML
}

func New(templates map[string]*template.Template, publicCfg config.Public, authClient *auth.Client, sessions SessionResolver, textProcessor *markdown.TextProcessor, health HealthChecker) *Handler {
	h := &Handler{
		Templates:     templates,
		Public:        publicCfg,
		Auth:          authClient,
		Sessions:      sessions,
		TextProcessor: textProcessor,
		Validate:      validation.New(),
		Health:        health,
	}

	welcome, err := textProcessor.Render(publicCfg.Home.WelcomeMarkdown)
	if err != nil {
		logger.Log.Error("rendering welcome text", "error", err)
	}
	h.welcome = welcome
	return h
}
