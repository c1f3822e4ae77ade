package frontend_domain

import (
	"github.com/itchan-dev/authgate/frontend/internal/notify"
	"github.com/itchan-dev/authgate/shared/domain"
)

// CommonTemplateData holds fields that are common to all page templates.
// Available in templates as .Common via the TemplateData wrapper.
type CommonTemplateData struct {
	Notification     *notify.Notification
	DisplayFor       float64 // seconds the snackbar stays on screen
	User             *domain.User
	Validation       ValidationData
	CSRFToken        string // CSRF token for form submissions
	EmailPlaceholder string // Pre-filled email for auth forms (from the flash cookie, not the URL)
	InvalidField     string // form field to mark invalid
}

// ValidationData holds the validation constants needed by templates.
type ValidationData struct {
	PasswordMinLen int
	SpecialChars   string
}
