package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"wallet-gateway/internal/models"
)

type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeAlreadyPaid OutcomeKind = "already_paid"
	OutcomeFailed      OutcomeKind = "failed"
	OutcomeClosed      OutcomeKind = "closed"
	OutcomeExpired     OutcomeKind = "expired"
)

// Outcome is what the payer is shown after a submission.
type Outcome struct {
	Kind    OutcomeKind
	Session *models.PaySession
	Title   string
	Message string
	Reason  string
	Result  *PaymentResult
}

// Checkout runs a payer's submission through evaluation, authentication,
// processing and callback dispatch.
type Checkout struct {
	sessions  *SessionManager
	auth      *AuthGate
	payments  *PaymentProcessor
	callbacks *Dispatcher
	log       *slog.Logger
}

func NewCheckout(sessions *SessionManager, auth *AuthGate, payments *PaymentProcessor, callbacks *Dispatcher, log *slog.Logger) *Checkout {
	return &Checkout{
		sessions:  sessions,
		auth:      auth,
		payments:  payments,
		callbacks: callbacks,
		log:       log,
	}
}

// View loads a session for the payment page, expiring it lazily.
func (c *Checkout) View(ctx context.Context, transactionID string) (*models.PaySession, Decision, error) {
	s, err := c.sessions.Get(ctx, transactionID)
	if err != nil {
		return nil, Decision{}, err
	}
	d, err := c.sessions.Evaluate(ctx, s)
	if err != nil {
		return nil, Decision{}, err
	}
	return s, d, nil
}

// Submit processes the payer's credentials against a session. Terminal
// sessions produce informational outcomes, not errors.
func (c *Checkout) Submit(ctx context.Context, transactionID, phone, pin string) (*Outcome, error) {
	if phone == "" || pin == "" {
		return nil, ErrMissingCredentials
	}

	s, err := c.sessions.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if s.Status == models.SessionStatusSuccess {
		return alreadyPaid(s, nil), nil
	}

	d, err := c.sessions.Evaluate(ctx, s)
	if err != nil {
		return nil, err
	}
	if !d.Processable {
		return ClosedOutcome(s, d), nil
	}

	user, err := c.auth.Authenticate(ctx, phone, pin)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return c.fail(ctx, s, authErr.Reason, "Invalid phone number or PIN", "Authentication failed")
		}
		return nil, err
	}

	// authentication is slow enough for the session to lapse meanwhile
	d, err = c.sessions.Evaluate(ctx, s)
	if err != nil {
		return nil, err
	}
	if !d.Processable {
		return ClosedOutcome(s, d), nil
	}

	res, err := c.payments.Process(ctx, s, user)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionExpired):
			if _, evalErr := c.sessions.Evaluate(ctx, s); evalErr != nil {
				c.log.Warn("failed to expire pay session", "transaction_id", s.TransactionID, "err", evalErr)
			}
			return ClosedOutcome(s, Decision{Reason: ReasonExpired}), nil
		case errors.Is(err, ErrSessionClosed):
			return ClosedOutcome(s, Decision{Reason: "already " + strings.ToLower(string(s.Status))}), nil
		}
		return nil, err
	}

	if res.Declined {
		return c.fail(ctx, s, res.Reason, res.Message, string(res.Reason))
	}
	if res.AlreadyProcessed {
		return alreadyPaid(s, res), nil
	}

	c.callbacks.DeliverAsync(ctx, s)

	return &Outcome{
		Kind:    OutcomeSuccess,
		Session: s,
		Title:   "Payment Successful",
		Message: "Your payment has been processed successfully",
		Result:  res,
	}, nil
}

func (c *Checkout) fail(ctx context.Context, s *models.PaySession, reason models.FailureReason, message, shown string) (*Outcome, error) {
	changed, err := c.payments.MarkFailed(ctx, s, reason)
	if err != nil {
		return nil, err
	}

	if !changed {
		// someone else settled or closed the session first
		fresh, err := c.sessions.Get(ctx, s.TransactionID)
		if err != nil {
			return nil, err
		}
		if fresh.Status == models.SessionStatusSuccess {
			return alreadyPaid(fresh, nil), nil
		}
		d, err := c.sessions.Evaluate(ctx, fresh)
		if err != nil {
			return nil, err
		}
		return ClosedOutcome(fresh, d), nil
	}

	c.callbacks.DeliverAsync(ctx, s)

	return &Outcome{
		Kind:    OutcomeFailed,
		Session: s,
		Title:   "Payment Failed",
		Message: message,
		Reason:  shown,
	}, nil
}

func alreadyPaid(s *models.PaySession, res *PaymentResult) *Outcome {
	return &Outcome{
		Kind:    OutcomeAlreadyPaid,
		Session: s,
		Title:   "Payment Already Completed",
		Message: "This payment has already been processed",
		Result:  res,
	}
}

// ClosedOutcome describes a session that can no longer be paid.
func ClosedOutcome(s *models.PaySession, d Decision) *Outcome {
	if s.Status == models.SessionStatusSuccess {
		return alreadyPaid(s, nil)
	}
	if d.Reason == ReasonExpired || s.Status == models.SessionStatusExpired {
		return &Outcome{
			Kind:    OutcomeExpired,
			Session: s,
			Title:   "Payment Expired",
			Message: "This payment link has expired",
			Reason:  ReasonExpired,
		}
	}
	return &Outcome{
		Kind:    OutcomeClosed,
		Session: s,
		Title:   "Payment Failed",
		Message: "Transaction " + d.Reason,
		Reason:  d.Reason,
	}
}
