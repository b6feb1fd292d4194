// Package verification issues and checks one-time email codes.
package verification

import "strings"

// Purpose scopes a code to one flow. A code issued for one purpose never
// verifies another.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposePasswordReset Purpose = "password_reset"
	PurposeEmailChange   Purpose = "email_change"
	PurposeLogin         Purpose = "login"
)

func ParsePurpose(raw string) (Purpose, bool) {
	p := Purpose(strings.TrimSpace(raw))
	return p, p.Valid()
}

func (p Purpose) Valid() bool {
	switch p {
	case PurposeRegister, PurposePasswordReset, PurposeEmailChange, PurposeLogin:
		return true
	}
	return false
}
