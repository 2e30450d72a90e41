package users

import (
	"errors"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "plain", email: "alice@example.com", valid: true},
		{name: "subdomain", email: "ops@mail.example.co.uk", valid: true},
		{name: "empty", email: "", valid: false},
		{name: "missing at", email: "alice.example.com", valid: false},
		{name: "missing domain dot", email: "alice@localhost", valid: false},
		{name: "display name form", email: "Alice <alice@example.com>", valid: false},
		{name: "spaces", email: "alice @example.com", valid: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateEmail(tc.email)
			if tc.valid && err != nil {
				t.Fatalf("ValidateEmail(%q) error = %v, want nil", tc.email, err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidEmail) {
				t.Fatalf("ValidateEmail(%q) error = %v, want ErrInvalidEmail", tc.email, err)
			}
		})
	}
}

func TestUserApplyKeepsBlankFields(t *testing.T) {
	t.Parallel()

	u := User{ID: "u1", Name: "alice", Email: "alice@example.com"}

	got := u.Apply(UpdateParams{Name: "  alicia  "})
	if got.Name != "alicia" {
		t.Fatalf("Name = %q, want %q", got.Name, "alicia")
	}
	if got.Email != "alice@example.com" {
		t.Fatalf("Email = %q, want unchanged", got.Email)
	}

	got = u.Apply(UpdateParams{Email: " Alice@Example.ORG "})
	if got.Name != "alice" {
		t.Fatalf("Name = %q, want unchanged", got.Name)
	}
	if got.Email != "alice@example.org" {
		t.Fatalf("Email = %q, want normalized", got.Email)
	}
}

func TestUpdateParamsValidateAllowsBlankEmail(t *testing.T) {
	t.Parallel()

	if err := (UpdateParams{Name: "bob"}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
	if err := (UpdateParams{Email: "not-an-email"}).Validate(); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("Validate() error = %v, want ErrInvalidEmail", err)
	}
}
