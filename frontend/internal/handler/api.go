package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/session"
	internal_errors "github.com/itchan-dev/authgate/shared/errors"
	"github.com/itchan-dev/authgate/shared/utils"
	"github.com/itchan-dev/authgate/shared/validation"
)

const maxValidateBody = 16 << 10

type validateSignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ValidateSignupHandler computes the live state of the signup form.
func (h *Handler) ValidateSignupHandler(w http.ResponseWriter, r *http.Request) {
	var req validateSignupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxValidateBody)).Decode(&req); err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.BadRequest("invalid request body"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, validation.EvaluateSignup(req.Email, req.Password, req.ConfirmPassword))
}

type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sessionResponse struct {
	Status    string       `json:"status"`
	User      *sessionUser `json:"user,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// SessionHandler reports the visitor's session. Tokens are never exposed.
func (h *Handler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Session(r)
	resp := sessionResponse{Status: sess.String()}
	if tok, ok := sess.Token(); ok {
		resp.User = &sessionUser{ID: tok.User.Id, Email: tok.User.Email}
		resp.ExpiresAt = &tok.ExpiresAt
	}

	w.Header().Set("Cache-Control", "no-store")
	status := http.StatusOK
	if sess.Status() == session.StatusUnknown {
		w.Header().Set("Retry-After", "1")
		status = http.StatusAccepted
	}
	utils.WriteJSON(w, status, resp)
}
