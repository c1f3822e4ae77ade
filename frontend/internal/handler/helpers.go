package handler

import (
	"net/http"

	"github.com/itchan-dev/authgate/frontend/internal/auth"
	"github.com/itchan-dev/authgate/frontend/internal/middleware"
	"github.com/itchan-dev/authgate/frontend/internal/notify"
)

func (h *Handler) visitor(r *http.Request) *auth.Visitor {
	return h.Auth.For(middleware.VisitorID(r.Context()))
}

// redirectWithFlash sends the browser back to a form with a notification.
func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target string, f notify.Flash) {
	notify.SetFlash(w, f, h.Public.SecureCookies)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// formField maps a validated struct field to its input name.
func formField(structField string) string {
	switch structField {
	case "Email":
		return "email"
	case "Password":
		return "password"
	case "ConfirmPassword":
		return "confirm_password"
	}
	return ""
}

// userMessage strips markup the auth service may have put in its messages.
func (h *Handler) userMessage(msg string) string {
	if clean := h.TextProcessor.PlainText(msg); clean != "" {
		return clean
	}
	return auth.MsgSomethingWrong
}
