package providers

import (
	"context"
	"errors"

	"github.com/open-sspm/useradmin/internal/auth"
	"github.com/open-sspm/useradmin/internal/store"
	"github.com/open-sspm/useradmin/internal/users"
)

// CredentialLookup returns a user together with its stored password hash.
type CredentialLookup interface {
	GetUserCredentials(ctx context.Context, email string) (users.User, string, error)
}

type PasswordProvider struct {
	Users CredentialLookup
}

func NewPasswordProvider(lookup CredentialLookup) *PasswordProvider {
	return &PasswordProvider{Users: lookup}
}

func (p *PasswordProvider) Name() string {
	return auth.MethodPassword
}

func (p *PasswordProvider) Authenticate(ctx context.Context, email, password string) (auth.Principal, error) {
	email = users.NormalizeEmail(email)
	if email == "" || password == "" {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	user, hash, err := p.Users.GetUserCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.Principal{}, auth.ErrInvalidCredentials
		}
		return auth.Principal{}, err
	}
	if hash == "" {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, hash)
	if err != nil {
		return auth.Principal{}, err
	}
	if !match {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	return auth.Principal{
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		Method:  auth.MethodPassword,
	}, nil
}
