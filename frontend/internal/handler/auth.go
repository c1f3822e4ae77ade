package handler

import (
	"net/http"

	"github.com/itchan-dev/authgate/frontend/internal/apiclient"
	"github.com/itchan-dev/authgate/frontend/internal/auth"
	frontend_domain "github.com/itchan-dev/authgate/frontend/internal/domain"
	"github.com/itchan-dev/authgate/frontend/internal/guard"
	"github.com/itchan-dev/authgate/frontend/internal/notify"
	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/itchan-dev/authgate/shared/validation"
)

const (
	MsgLoginSuccess  = "Login successful!"
	MsgSignupSuccess = "Check your email for confirmation!"
	MsgFixErrors     = "Please fix all validation errors before submitting."
)

func (h *Handler) LoginGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, "login.html", frontend_domain.LoginPageData{})
}

func (h *Handler) LoginPostHandler(w http.ResponseWriter, r *http.Request) {
	form := validation.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	if fe := validation.FirstError(h.Validate.Struct(form)); fe != nil {
		formSubmissionsTotal.WithLabelValues("login", "invalid").Inc()
		h.redirectWithFlash(w, r, guard.LoginPath, notify.Flash{
			Notification: notify.NewError(fe.Message),
			Field:        formField(fe.Field),
			Email:        form.Email,
		})
		return
	}

	if _, err := h.visitor(r).SignInWithPassword(r.Context(), form.Email, form.Password); err != nil {
		if apiclient.IsTransient(err) {
			logger.Log.Error("during login API call", "error", err)
			formSubmissionsTotal.WithLabelValues("login", "unavailable").Inc()
		} else {
			logger.Log.Info("login rejected", "error", err)
			formSubmissionsTotal.WithLabelValues("login", "rejected").Inc()
		}
		h.redirectWithFlash(w, r, guard.LoginPath, notify.Flash{
			Notification: notify.NewError(h.userMessage(auth.LoginErrorMessage(err))),
			Email:        form.Email,
		})
		return
	}

	formSubmissionsTotal.WithLabelValues("login", "ok").Inc()
	notify.Navigate(w, guard.HomePath, h.Public.Notification.NavigateAfter)
	h.renderTemplateWithNotification(w, r, "login.html",
		frontend_domain.LoginPageData{Complete: true}, notify.NewSuccess(MsgLoginSuccess))
}

func (h *Handler) SignupGetHandler(w http.ResponseWriter, r *http.Request) {
	common := h.initCommonTemplateData(r)
	h.consumeFlash(w, r, &common)
	h.execute(w, "signup.html", TemplateData{
		Data:   frontend_domain.NewSignupPageData(common.EmailPlaceholder),
		Common: common,
	})
}

func (h *Handler) SignupPostHandler(w http.ResponseWriter, r *http.Request) {
	form := validation.SignupForm{
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	// The submit button may have been enabled by a stale state.
	if fe := validation.FirstError(h.Validate.Struct(form)); fe != nil {
		formSubmissionsTotal.WithLabelValues("signup", "invalid").Inc()
		h.redirectWithFlash(w, r, guard.SignupPath, notify.Flash{
			Notification: notify.NewError(MsgFixErrors),
			Field:        formField(fe.Field),
			Email:        form.Email,
		})
		return
	}

	res, err := h.visitor(r).SignUp(r.Context(), form.Email, form.Password)
	if err != nil {
		class, msg := auth.ClassifySignUpError(err)
		if class == auth.SignUpErrUnavailable {
			logger.Log.Error("during signup API call", "error", err)
		} else {
			logger.Log.Info("signup rejected", "error", err)
		}
		formSubmissionsTotal.WithLabelValues("signup", signUpOutcome(class)).Inc()
		h.redirectWithFlash(w, r, guard.SignupPath, notify.Flash{
			Notification: notify.NewError(h.userMessage(msg)),
			Field:        signUpField(class),
			Email:        form.Email,
		})
		return
	}

	// A known address is answered with a user that has no identities.
	if res.AlreadyRegistered() {
		formSubmissionsTotal.WithLabelValues("signup", "already_registered").Inc()
		h.redirectWithFlash(w, r, guard.SignupPath, notify.Flash{
			Notification: notify.NewError(auth.MsgAlreadyRegistered),
			Field:        "email",
			Email:        form.Email,
		})
		return
	}

	formSubmissionsTotal.WithLabelValues("signup", "ok").Inc()
	notify.Navigate(w, guard.LoginPath, h.Public.Notification.NavigateAfter)
	h.renderTemplateWithNotification(w, r, "signup.html",
		frontend_domain.SignupPageData{Complete: true}, notify.NewSuccess(MsgSignupSuccess))
}

// LogoutHandler signs the visitor out. The local session is gone even when
// the auth service could not be reached.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.visitor(r).SignOut(r.Context()); err != nil {
		logger.Log.Error("signing out", "error", err)
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func signUpOutcome(class auth.SignUpError) string {
	switch class {
	case auth.SignUpErrAlreadyRegistered:
		return "already_registered"
	case auth.SignUpErrInvalidEmail:
		return "invalid_email"
	case auth.SignUpErrWeakPassword:
		return "weak_password"
	case auth.SignUpErrUnavailable:
		return "unavailable"
	}
	return "rejected"
}

func signUpField(class auth.SignUpError) string {
	switch class {
	case auth.SignUpErrAlreadyRegistered, auth.SignUpErrInvalidEmail:
		return "email"
	case auth.SignUpErrWeakPassword:
		return "password"
	}
	return ""
}
