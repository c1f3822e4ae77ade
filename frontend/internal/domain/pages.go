package frontend_domain

import (
	"html/template"

	"github.com/itchan-dev/authgate/shared/validation"
)

type LoginPageData struct {
	// Complete is set once sign in succeeded and the page is about to leave.
	Complete bool
}

// RuleView is one password requirement as shown under the password field.
type RuleView struct {
	Key  string
	Text string
	Met  bool
}

type SignupPageData struct {
	State    validation.SignupState
	Rules    []RuleView
	Complete bool
}

// NewSignupPageData describes a form holding only the given email. Password
// fields are never sent back to the browser.
func NewSignupPageData(email string) SignupPageData {
	st := validation.EvaluateSignup(email, "", "")
	rules := make([]RuleView, 0, len(validation.Rules))
	for _, r := range validation.Rules {
		rules = append(rules, RuleView{Key: r.Key(), Text: r.Text(), Met: st.Password.Passes(r)})
	}
	return SignupPageData{State: st, Rules: rules}
}

type HomePageData struct {
	Welcome template.HTML
}
