package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/sqlrepo"

	"golang.org/x/crypto/bcrypt"
)

// AuthGate verifies phone and PIN against the user store.
type AuthGate struct {
	users UserStore
	log   *slog.Logger
	// compared against when the phone is unknown so every attempt costs one bcrypt run
	dummyHash []byte
}

func NewAuthGate(users UserStore, bcryptCost int, log *slog.Logger) (*AuthGate, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-pin"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare auth gate: %w", err)
	}
	return &AuthGate{
		users:     users,
		log:       log,
		dummyHash: dummy,
	}, nil
}

// Authenticate returns the user owning phone when pin matches. Rejections
// are *AuthError values carrying the session failure reason.
func (g *AuthGate) Authenticate(ctx context.Context, phone, pin string) (*models.User, error) {
	if phone == "" || pin == "" {
		return nil, ErrMissingCredentials
	}

	user, err := g.users.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sqlrepo.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(g.dummyHash, []byte(pin))
			g.log.Warn("authentication failed", "phone", phone, "reason", models.ReasonUserNotFound)
			return nil, &AuthError{Reason: models.ReasonUserNotFound, Err: ErrUserNotFound}
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	pinErr := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin))

	if !user.IsActive {
		g.log.Warn("authentication failed", "phone", phone, "reason", models.ReasonAccountInactive)
		return nil, &AuthError{Reason: models.ReasonAccountInactive, Err: ErrAccountInactive}
	}
	if pinErr != nil {
		g.log.Warn("authentication failed", "phone", phone, "reason", models.ReasonInvalidPIN)
		return nil, &AuthError{Reason: models.ReasonInvalidPIN, Err: ErrInvalidCredentials}
	}

	return user, nil
}
