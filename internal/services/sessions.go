package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"wallet-gateway/internal/config"
	"wallet-gateway/internal/models"

	"github.com/google/uuid"
)

const ReasonExpired = "expired"

// Decision tells whether a pay session may still be processed.
type Decision struct {
	Processable bool
	Reason      string
}

// SessionManager owns pay session creation and the processable decision.
type SessionManager struct {
	sessions          SessionStore
	ttl               time.Duration
	paymentServiceURL string
	log               *slog.Logger
	now               func() time.Time
}

func NewSessionManager(sessions SessionStore, cfg config.PaymentConfig, log *slog.Logger) *SessionManager {
	return &SessionManager{
		sessions:          sessions,
		ttl:               cfg.SessionTTL,
		paymentServiceURL: strings.TrimRight(cfg.PaymentServiceURL, "/"),
		log:               log,
		now:               time.Now,
	}
}

// Create opens a PENDING session that expires after the configured TTL.
func (m *SessionManager) Create(ctx context.Context, req models.CreateSessionRequest) (*models.PaySession, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	transactionID := "tx_" + uuid.NewString()

	callbackURL := req.CallbackURL
	if callbackURL == "" && m.paymentServiceURL != "" {
		callbackURL = m.paymentServiceURL + "/payment/success/" + transactionID
	}
	if err := validateCallbackURL(callbackURL); err != nil {
		return nil, err
	}

	var failureURL *string
	if req.FailureCallbackURL != "" {
		if err := validateCallbackURL(req.FailureCallbackURL); err != nil {
			return nil, err
		}
		failureURL = &req.FailureCallbackURL
	}

	now := m.now().UTC()
	session := &models.PaySession{
		TransactionID:      transactionID,
		Amount:             req.Amount,
		Status:             models.SessionStatusPending,
		CallbackURL:        callbackURL,
		FailureCallbackURL: failureURL,
		ExpiresAt:          now.Add(m.ttl),
		Metadata:           models.Metadata(req.Metadata),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create pay session: %w", err)
	}

	m.log.Info("pay session created",
		"transaction_id", transactionID, "amount", req.Amount, "expires_at", session.ExpiresAt)

	return session, nil
}

func (m *SessionManager) Get(ctx context.Context, transactionID string) (*models.PaySession, error) {
	return m.sessions.GetSession(ctx, transactionID)
}

// Evaluate decides whether s can be processed now. A PENDING session found
// past its expiry is moved to EXPIRED as a side effect and s is refreshed.
func (m *SessionManager) Evaluate(ctx context.Context, s *models.PaySession) (Decision, error) {
	now := m.now().UTC()

	if s.IsExpired(now) {
		if s.Status == models.SessionStatusPending {
			changed, err := m.sessions.MarkExpired(ctx, s.TransactionID, now)
			if err != nil {
				return Decision{}, err
			}
			if changed {
				s.Status = models.SessionStatusExpired
				s.UpdatedAt = now
				m.log.Info("pay session expired", "transaction_id", s.TransactionID)
			} else if err := m.refresh(ctx, s); err != nil {
				return Decision{}, err
			}
		}
		return Decision{Reason: ReasonExpired}, nil
	}

	if s.Status != models.SessionStatusPending {
		return Decision{Reason: "already " + strings.ToLower(string(s.Status))}, nil
	}

	return Decision{Processable: true}, nil
}

// ExpireStale moves up to limit stale PENDING sessions to EXPIRED.
func (m *SessionManager) ExpireStale(ctx context.Context, limit int) (int64, error) {
	n, err := m.sessions.ExpireStale(ctx, m.now().UTC(), limit)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.log.Info("expired stale pay sessions", "count", n)
	}
	return n, nil
}

func (m *SessionManager) refresh(ctx context.Context, s *models.PaySession) error {
	fresh, err := m.sessions.GetSession(ctx, s.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to reload pay session: %w", err)
	}
	*s = *fresh
	return nil
}

func validateCallbackURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: no callback url and no PAYMENT_SERVICE_URL default", ErrInvalidCallbackURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Join(ErrInvalidCallbackURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidCallbackURL
	}
	return nil
}
