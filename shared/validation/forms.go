package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const (
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgShortPassword      = "Password must be at least 8 characters long."
	MsgWeakPassword       = "Password does not meet requirements."
	MsgPasswordsDontMatch = "Passwords do not match."
)

// LoginForm is bound from the login POST body.
type LoginForm struct {
	Email    string `validate:"authemail"`
	Password string `validate:"loginpassword"`
}

// SignupForm is bound from the signup POST body.
type SignupForm struct {
	Email           string `validate:"authemail"`
	Password        string `validate:"strongpassword"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// FieldError is the first failing form field and its user-facing message.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// New returns a validator with the auth form tags registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "authemail", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	mustRegister(v, "loginpassword", func(fl validator.FieldLevel) bool {
		return ValidLoginPassword(fl.Field().String())
	})
	mustRegister(v, "strongpassword", func(fl validator.FieldLevel) bool {
		return CheckPasswordStrength(fl.Field().String()).Valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// FirstError converts the first failed field of a validator error into a
// FieldError. Fields are reported in struct order, so callers get fail-fast
// semantics for free. Returns nil for a nil error.
func FirstError(err error) *FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &FieldError{Message: err.Error()}
	}
	fe := verrs[0]
	return &FieldError{Field: fe.Field(), Message: messageFor(fe)}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "authemail":
		return MsgInvalidEmail
	case "loginpassword":
		return MsgShortPassword
	case "strongpassword":
		return MsgWeakPassword
	case "eqfield", "required":
		if fe.Field() == "ConfirmPassword" {
			return MsgPasswordsDontMatch
		}
	}
	return "Invalid " + fe.Field()
}
