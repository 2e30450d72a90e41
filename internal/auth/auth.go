package auth

import (
	"errors"
	"strings"
)

const MethodPassword = "password"

var ErrInvalidCredentials = errors.New("invalid credentials")

// Principal is the operator signed in to the panel.
type Principal struct {
	UserID  string
	Name    string
	Email   string
	IsAdmin bool
	Method  string // "password" now; "oidc" later
}

// DisplayName prefers the account name and falls back to the email.
func (p Principal) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(p.Email)
}
