package handler

import (
	"bytes"
	"fmt"
	"net/http"

	frontend_domain "github.com/itchan-dev/authgate/frontend/internal/domain"
	"github.com/itchan-dev/authgate/frontend/internal/guard"
	"github.com/itchan-dev/authgate/frontend/internal/middleware"
	"github.com/itchan-dev/authgate/frontend/internal/notify"
	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/itchan-dev/authgate/shared/validation"
)

// TemplateData wraps page-specific data with common template data.
// Templates access page data via .Data and common data via .Common.
type TemplateData struct {
	Data   any
	Common frontend_domain.CommonTemplateData
}

// initCommonTemplateData fills the common fields. It does not touch the
// flash cookie; see consumeFlash.
func (h *Handler) initCommonTemplateData(r *http.Request) frontend_domain.CommonTemplateData {
	return frontend_domain.CommonTemplateData{
		DisplayFor: h.Public.Notification.DisplayFor.Seconds(),
		User:       guard.UserFromContext(r.Context()),
		Validation: frontend_domain.ValidationData{
			PasswordMinLen: validation.PasswordMinLen,
			SpecialChars:   validation.SpecialChars,
		},
		CSRFToken: middleware.GetCSRFTokenFromContext(r),
	}
}

func (h *Handler) consumeFlash(w http.ResponseWriter, r *http.Request, common *frontend_domain.CommonTemplateData) {
	f := notify.ConsumeFlash(w, r, h.Public.SecureCookies)
	common.Notification = f.Notification
	common.InvalidField = f.Field
	common.EmailPlaceholder = f.Email
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	common := h.initCommonTemplateData(r)
	h.consumeFlash(w, r, &common)
	h.execute(w, name, TemplateData{Data: data, Common: common})
}

// renderTemplateWithNotification shows n instead of any pending flash.
func (h *Handler) renderTemplateWithNotification(w http.ResponseWriter, r *http.Request, name string, data any, n *notify.Notification) {
	common := h.initCommonTemplateData(r)
	h.consumeFlash(w, r, &common)
	common.Notification = n
	h.execute(w, name, TemplateData{Data: data, Common: common})
}

func (h *Handler) execute(w http.ResponseWriter, name string, data TemplateData) {
	tmpl, ok := h.Templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("Template %s not found", name), http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		logger.Log.Error("error executing template", "template", name, "error", err)
		http.Error(w, "Internal Server Error rendering template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// LoadingHandler is the placeholder served while a session is unresolved.
// It leaves a pending flash for the page that follows.
func (h *Handler) LoadingHandler(w http.ResponseWriter, r *http.Request) {
	h.execute(w, "loading.html", TemplateData{Common: h.initCommonTemplateData(r)})
}
