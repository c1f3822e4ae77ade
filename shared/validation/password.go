// Package validation holds the pure input checks used by the login and
// signup forms. Every function is deterministic and total: empty strings and
// non-ASCII input are valid arguments.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	PasswordMinLen = 8

	// SpecialChars is the fixed set accepted by the special character rule.
	SpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail reports whether text has the shape local@domain.tld with a
// top-level segment of at least two letters. Purely syntactic.
func IsValidEmail(text string) bool {
	return emailRegex.MatchString(text)
}

// ValidLoginPassword is the only password check the login form performs.
func ValidLoginPassword(text string) bool {
	return utf8.RuneCountInString(text) >= PasswordMinLen
}

// Rule names one password strength criterion.
type Rule int

const (
	RuleMinLength Rule = iota
	RuleUpperCase
	RuleLowerCase
	RuleNumber
	RuleSpecialChar
)

// Rules lists every rule in display order.
var Rules = []Rule{RuleMinLength, RuleUpperCase, RuleLowerCase, RuleNumber, RuleSpecialChar}

func (r Rule) Key() string {
	switch r {
	case RuleMinLength:
		return "minLength"
	case RuleUpperCase:
		return "hasUpperCase"
	case RuleLowerCase:
		return "hasLowerCase"
	case RuleNumber:
		return "hasNumber"
	case RuleSpecialChar:
		return "hasSpecialChar"
	}
	return ""
}

// Text is the requirement shown next to the password field.
func (r Rule) Text() string {
	switch r {
	case RuleMinLength:
		return "At least 8 characters"
	case RuleUpperCase:
		return "At least one uppercase letter"
	case RuleLowerCase:
		return "At least one lowercase letter"
	case RuleNumber:
		return "At least one number"
	case RuleSpecialChar:
		return "At least one special character"
	}
	return ""
}

// PasswordStrength is the result of CheckPasswordStrength: one boolean per rule.
type PasswordStrength struct {
	MinLength      bool `json:"minLength"`
	HasUpperCase   bool `json:"hasUpperCase"`
	HasLowerCase   bool `json:"hasLowerCase"`
	HasNumber      bool `json:"hasNumber"`
	HasSpecialChar bool `json:"hasSpecialChar"`
}

// CheckPasswordStrength evaluates the five independent rules.
// Letters and digits are ASCII only.
func CheckPasswordStrength(text string) PasswordStrength {
	var s PasswordStrength
	s.MinLength = utf8.RuneCountInString(text) >= PasswordMinLen
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			s.HasUpperCase = true
		case r >= 'a' && r <= 'z':
			s.HasLowerCase = true
		case r >= '0' && r <= '9':
			s.HasNumber = true
		case strings.ContainsRune(SpecialChars, r):
			s.HasSpecialChar = true
		}
	}
	return s
}

func (s PasswordStrength) Passes(r Rule) bool {
	switch r {
	case RuleMinLength:
		return s.MinLength
	case RuleUpperCase:
		return s.HasUpperCase
	case RuleLowerCase:
		return s.HasLowerCase
	case RuleNumber:
		return s.HasNumber
	case RuleSpecialChar:
		return s.HasSpecialChar
	}
	return false
}

// Valid is true only when every rule holds.
func (s PasswordStrength) Valid() bool {
	return s.MinLength && s.HasUpperCase && s.HasLowerCase && s.HasNumber && s.HasSpecialChar
}

// Failed returns the rules that do not hold, in display order.
func (s PasswordStrength) Failed() []Rule {
	var failed []Rule
	for _, r := range Rules {
		if !s.Passes(r) {
			failed = append(failed, r)
		}
	}
	return failed
}

// PasswordsMatch is true only for identical, non-empty inputs.
func PasswordsMatch(password, confirm string) bool {
	return password == confirm && password != ""
}

// SignupState is the live validation state of the whole signup form.
type SignupState struct {
	EmailValid     bool             `json:"emailValid"`
	Password       PasswordStrength `json:"password"`
	PasswordsMatch bool             `json:"passwordsMatch"`
	FormValid      bool             `json:"formValid"`
}

func EvaluateSignup(email, password, confirm string) SignupState {
	st := SignupState{
		EmailValid:     IsValidEmail(email),
		Password:       CheckPasswordStrength(password),
		PasswordsMatch: PasswordsMatch(password, confirm),
	}
	st.FormValid = st.EmailValid && st.Password.Valid() && st.PasswordsMatch
	return st
}
