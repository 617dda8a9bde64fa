// Package identity defines the identity-provider boundary and a local, SQLite-backed provider.
package identity

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrWeakPassword       = errors.New("identity: password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("identity: email address is invalid")
)

// EmailAddress mirrors the provider's email object.
type EmailAddress struct {
	EmailAddress string `json:"emailAddress"`
}

// User is the object a provider emits on successful sign-in or sign-up.
type User struct {
	ID                  string        `json:"id"`
	PrimaryEmailAddress *EmailAddress `json:"primaryEmailAddress,omitempty"`
}

// PrimaryEmail returns the primary email or "" when the provider supplied none.
func (u User) PrimaryEmail() string {
	if u.PrimaryEmailAddress == nil {
		return ""
	}
	return u.PrimaryEmailAddress.EmailAddress
}

// Credentials are collected by the provider's own forms.
type Credentials struct {
	Email    string
	Password string
}

// Provider collects and verifies credentials. The chat client never validates them itself.
type Provider interface {
	SignIn(ctx context.Context, creds Credentials) (User, error)
	SignUp(ctx context.Context, creds Credentials) (User, error)
	SignOut(ctx context.Context) error
}
