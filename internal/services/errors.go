package services

import (
	"errors"

	"wallet-gateway/internal/models"
)

var (
	ErrInvalidAmount      = errors.New("amount must be a positive integer")
	ErrInvalidCallbackURL = errors.New("callback url must be an absolute http or https url")
	ErrMissingCredentials = errors.New("phone and pin are required")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidCredentials = errors.New("invalid phone number or pin")
	ErrInvalidPhone       = errors.New("phone must be 11 digits starting with 01")
	ErrInvalidPIN         = errors.New("pin must be 4 to 6 digits")
	ErrPhoneTaken         = errors.New("phone number already registered")
	ErrInvalidToken       = errors.New("invalid or expired session token")
	// ErrSessionClosed means the pay session already failed or expired.
	ErrSessionClosed = errors.New("pay session is closed")
	// ErrSessionExpired means the pay session ran out of time before it settled.
	ErrSessionExpired = errors.New("pay session expired")
	// ErrTopupApplied means a topup with the same request ID is already in the ledger.
	ErrTopupApplied = errors.New("topup request already applied")
)

// AuthError is returned by the authentication gate. Reason is the code
// recorded on the pay session; the payer only ever sees a generic message.
type AuthError struct {
	Reason models.FailureReason
	Err    error
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
