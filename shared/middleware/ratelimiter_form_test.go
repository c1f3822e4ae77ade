package middleware

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEmailFromForm(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		email string
	}{
		{"plain", url.Values{"email": {"user@example.com"}, "password": {"secret"}}, "user@example.com"},
		{"mixed case", url.Values{"email": {"User@Example.COM"}}, "user@example.com"},
		{"padded", url.Values{"email": {"  user@example.com\t"}}, "user@example.com"},
		{"signup form", url.Values{"email": {"new@example.com"}, "password": {"Str0ng!pw"}, "confirm_password": {"Str0ng!pw"}}, "new@example.com"},
		{"missing", url.Values{"password": {"secret"}}, ""},
		{"blank", url.Values{"email": {"   "}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/login", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			email, err := GetEmailFromForm(req)
			require.NoError(t, err)
			assert.Equal(t, tt.email, email)
		})
	}
}

func TestGetFieldFromFormLeavesFormReadable(t *testing.T) {
	form := url.Values{"email": {"User@Example.com"}, "password": {"secret"}, "csrf_token": {"tok"}}
	req := httptest.NewRequest("POST", "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err := GetEmailFromForm(req)
	require.NoError(t, err)
	password, err := GetFieldFromForm("password")(req)
	require.NoError(t, err)

	assert.Equal(t, "secret", password)
	// the handler still sees the email as typed
	assert.Equal(t, "User@Example.com", req.FormValue("email"))
	assert.Equal(t, "tok", req.FormValue("csrf_token"))
}
