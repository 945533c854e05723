package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Database models

type User struct {
	ID        string    `db:"id"`
	Phone     string    `db:"phone"`
	PinHash   string    `db:"pin_hash"`
	Name      string    `db:"name"`
	Balance   int64     `db:"balance"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (u *User) HasSufficientBalance(amount int64) bool {
	return u.Balance >= amount
}

type SessionStatus string

// Session status constants
const (
	SessionStatusPending SessionStatus = "PENDING"
	SessionStatusSuccess SessionStatus = "SUCCESS"
	SessionStatusFailed  SessionStatus = "FAILED"
	SessionStatusExpired SessionStatus = "EXPIRED"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionStatusSuccess || s == SessionStatusFailed || s == SessionStatusExpired
}

type PaySession struct {
	TransactionID         string        `db:"transaction_id"`
	Amount                int64         `db:"amount"`
	Status                SessionStatus `db:"status"`
	CallbackURL           string        `db:"callback_url"`
	FailureCallbackURL    *string       `db:"failure_callback_url"`
	UserID                *string       `db:"user_id"`
	UserPhone             *string       `db:"user_phone"`
	WalletTxRef           *string       `db:"wallet_tx_ref"`
	ExpiresAt             time.Time     `db:"expires_at"`
	CompletedAt           *time.Time    `db:"completed_at"`
	FailureReason         *string       `db:"failure_reason"`
	CallbackAttempts      int           `db:"callback_attempts"`
	CallbackDelivered     bool          `db:"callback_delivered"`
	CallbackLastAttemptAt *time.Time    `db:"callback_last_attempt_at"`
	Metadata              Metadata      `db:"metadata"`
	CreatedAt             time.Time     `db:"created_at"`
	UpdatedAt             time.Time     `db:"updated_at"`
}

func (s *PaySession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type TransactionType string

// Transaction type constants
const (
	TransactionTypePayment TransactionType = "PAYMENT"
	TransactionTypeTopup   TransactionType = "TOPUP"
	TransactionTypeRefund  TransactionType = "REFUND"
)

const TransactionStatusSuccess = "SUCCESS"

// Transaction is an append-only ledger entry.
type Transaction struct {
	Reference       string          `db:"reference"`
	Type            TransactionType `db:"type"`
	Amount          int64           `db:"amount"`
	Status          string          `db:"status"`
	UserID          string          `db:"user_id"`
	PreviousBalance int64           `db:"previous_balance"`
	NewBalance      int64           `db:"new_balance"`
	FailureReason   *string         `db:"failure_reason"`
	CompletedAt     *time.Time      `db:"completed_at"`
	Metadata        Metadata        `db:"metadata"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Metadata is stored as a JSON object (jsonb on postgres, text on sqlite).
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}

	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	*m = out
	return nil
}

type FailureReason string

// Failure reason codes recorded on PaySession.failure_reason
const (
	ReasonUserNotFound        FailureReason = "USER_NOT_FOUND"
	ReasonAccountInactive     FailureReason = "ACCOUNT_INACTIVE"
	ReasonInvalidPIN          FailureReason = "INVALID_PIN"
	ReasonInsufficientBalance FailureReason = "INSUFFICIENT_BALANCE"
	ReasonDeductionFailed     FailureReason = "DEDUCTION_FAILED"
)

// Event type constants for the kafka events topic
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventWalletToppedUp   = "wallet.topped_up"
)

type WalletEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transactionId"`
	Reference     string    `json:"reference,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	Amount        int64     `json:"amount"`
	Balance       int64     `json:"balance,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// TopupCommand is consumed by the topup worker.
type TopupCommand struct {
	RequestID string `json:"requestId"`
	Phone     string `json:"phone"`
	Amount    int64  `json:"amount"`
}

// CallbackPayload is the signed webhook body sent to the initiating service.
type CallbackPayload struct {
	TransactionID string  `json:"transactionId"`
	Amount        int64   `json:"amount"`
	UserPhone     *string `json:"userPhone"`
	UserID        *string `json:"userId"`
	Status        string  `json:"status"`
	WalletTxRef   *string `json:"walletTxRef"`
	FailureReason *string `json:"failureReason"`
	Timestamp     string  `json:"timestamp"`
}
