// Package auth connects identity-provider events to the session store, the backend handshake and
// navigation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nova-bot/internal/identity"
	"nova-bot/internal/route"
	"nova-bot/internal/session"
)

// ErrMissingUserID is returned when the provider reports success without a user id.
var ErrMissingUserID = errors.New("auth: provider user has no id")

// Handshaker registers a signed-in user with the backend.
type Handshaker interface {
	Signin(ctx context.Context, userID, email string) error
}

// SignOuter ends the identity-provider session.
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// Bridge reacts to sign-in, sign-up and sign-out.
type Bridge struct {
	store    session.Store
	backend  Handshaker
	provider SignOuter
	nav      route.Navigator
	logger   *slog.Logger
}

func NewBridge(store session.Store, backend Handshaker, provider SignOuter, nav route.Navigator, logger *slog.Logger) (*Bridge, error) {
	if store == nil {
		return nil, errors.New("auth: session store must not be nil")
	}
	if backend == nil {
		return nil, errors.New("auth: backend must not be nil")
	}
	if provider == nil {
		return nil, errors.New("auth: identity provider must not be nil")
	}
	if nav == nil {
		return nil, errors.New("auth: navigator must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{store: store, backend: backend, provider: provider, nav: nav, logger: logger}, nil
}

// SignedIn handles a provider sign-in success.
func (b *Bridge) SignedIn(ctx context.Context, u identity.User) error {
	return b.establish(ctx, "signin", u)
}

// SignedUp handles a provider sign-up success. The sequence is the same as for sign-in.
func (b *Bridge) SignedUp(ctx context.Context, u identity.User) error {
	return b.establish(ctx, "signup", u)
}

func (b *Bridge) establish(ctx context.Context, event string, u identity.User) error {
	if u.ID == "" {
		b.logger.Error("identity provider returned no user id", "event", event)
		return ErrMissingUserID
	}
	email := u.PrimaryEmail()

	if err := b.store.Save(ctx, u.ID, email); err != nil {
		return fmt.Errorf("auth: save session: %w", err)
	}
	if err := b.backend.Signin(ctx, u.ID, email); err != nil {
		b.logger.Error("sign-in handshake failed", "event", event, "user_id", u.ID, "error", err)
		return fmt.Errorf("auth: handshake: %w", err)
	}

	b.logger.Info("user signed in", "event", event, "user_id", u.ID)
	b.nav.Navigate(route.ChatHome)
	return nil
}

// SignOut ends the provider session, clears the local session and reloads the entry route.
// When the provider fails nothing is cleared.
func (b *Bridge) SignOut(ctx context.Context) error {
	if err := b.provider.SignOut(ctx); err != nil {
		b.logger.Error("provider sign-out failed", "error", err)
		return fmt.Errorf("auth: provider sign-out: %w", err)
	}
	if err := b.store.Clear(ctx); err != nil {
		return fmt.Errorf("auth: clear session: %w", err)
	}
	b.nav.Reload(route.SignIn)
	return nil
}
