// Package users holds the user record shared by the users service, its store
// and the panel's client.
package users

import (
	"errors"
	"net/mail"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email")

// User is the account record served by the users service.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// UpdateParams carries the editable fields of a user. Blank fields leave the
// stored value untouched.
type UpdateParams struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (p UpdateParams) Normalize() UpdateParams {
	return UpdateParams{
		Name:  strings.TrimSpace(p.Name),
		Email: NormalizeEmail(p.Email),
	}
}

// Validate reports whether the non-blank fields are acceptable.
func (p UpdateParams) Validate() error {
	if p.Email == "" {
		return nil
	}
	return ValidateEmail(p.Email)
}

// Apply returns u with the non-blank fields of p.
func (u User) Apply(p UpdateParams) User {
	p = p.Normalize()
	if p.Name != "" {
		u.Name = p.Name
	}
	if p.Email != "" {
		u.Email = p.Email
	}
	return u
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts bare addresses only ("a@b.c"), not "Name <a@b.c>".
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}
