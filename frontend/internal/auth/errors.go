package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/itchan-dev/authgate/frontend/internal/apiclient"
)

const (
	MsgAlreadyRegistered = "This email is already registered. Please use a different email or login."
	MsgInvalidEmail      = "Invalid email format."
	MsgWeakPassword      = "Password does not meet requirements."
	MsgSomethingWrong    = "Something went wrong. Please try again."
	MsgLoginFailed       = "Login failed."
)

// SignUpError is a classified signup failure.
type SignUpError int

const (
	SignUpErrOther SignUpError = iota
	SignUpErrAlreadyRegistered
	SignUpErrInvalidEmail
	SignUpErrWeakPassword
	SignUpErrUnavailable
)

// ClassifySignUpError maps a signup failure to its class and the message
// shown to the user. Rate limiting is passed through as sent. Otherwise the
// structured error_code wins and the message text is matched
// case-insensitively.
func ClassifySignUpError(err error) (SignUpError, string) {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return SignUpErrUnavailable, MsgSomethingWrong
	}
	if isRateLimited(apiErr) {
		return SignUpErrOther, messageOr(apiErr.Message, MsgSomethingWrong)
	}

	msg := strings.ToLower(apiErr.Message)
	switch apiErr.Code {
	case "user_already_exists", "email_exists":
		return SignUpErrAlreadyRegistered, MsgAlreadyRegistered
	case "email_address_invalid", "email_address_not_authorized":
		return SignUpErrInvalidEmail, MsgInvalidEmail
	case "weak_password":
		return SignUpErrWeakPassword, MsgWeakPassword
	case "validation_failed":
		if strings.Contains(msg, "email") {
			return SignUpErrInvalidEmail, MsgInvalidEmail
		}
	}

	switch {
	case strings.Contains(msg, "already registered"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "already taken"):
		return SignUpErrAlreadyRegistered, MsgAlreadyRegistered
	case strings.Contains(msg, "email"):
		return SignUpErrInvalidEmail, MsgInvalidEmail
	case strings.Contains(msg, "password"):
		return SignUpErrWeakPassword, MsgWeakPassword
	}

	return SignUpErrOther, messageOr(apiErr.Message, MsgSomethingWrong)
}

func isRateLimited(apiErr *apiclient.APIError) bool {
	switch apiErr.Code {
	case "over_email_send_rate_limit", "over_request_rate_limit", "over_sms_send_rate_limit":
		return true
	}
	return apiErr.Status == http.StatusTooManyRequests
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// LoginErrorMessage is the backend's own message, or a generic one when it
// has none. Transport failures never leak their text.
func LoginErrorMessage(err error) string {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return MsgSomethingWrong
	}
	return messageOr(apiErr.Message, MsgLoginFailed)
}
