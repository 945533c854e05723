package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/sqlrepo"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PaymentResult describes one processing attempt. Declined results carry a
// reason code and leave balances untouched.
type PaymentResult struct {
	TransactionID    string
	WalletTxRef      string
	UserID           string
	UserPhone        string
	Amount           int64
	PreviousBalance  int64
	NewBalance       int64
	AlreadyProcessed bool
	Declined         bool
	Reason           models.FailureReason
	Message          string
}

// PaymentProcessor debits balances and writes the ledger.
type PaymentProcessor struct {
	users    UserStore
	sessions SessionStore
	ledger   LedgerStore
	cache    BalanceCache
	events   EventPublisher
	log      *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewPaymentProcessor(
	users UserStore,
	sessions SessionStore,
	ledger LedgerStore,
	cache BalanceCache,
	events EventPublisher,
	log *slog.Logger,
) *PaymentProcessor {
	if events == nil {
		events = NopPublisher{}
	}
	return &PaymentProcessor{
		users:    users,
		sessions: sessions,
		ledger:   ledger,
		cache:    cache,
		events:   events,
		log:      log,
		tracer:   otel.Tracer("wallet-payments"),
		now:      time.Now,
	}
}

// Process settles s by debiting u. A SUCCESS session returns its original
// reference without touching balances. Infrastructure errors leave s PENDING.
func (p *PaymentProcessor) Process(ctx context.Context, s *models.PaySession, u *models.User) (*PaymentResult, error) {
	ctx, span := p.tracer.Start(ctx, "PaymentProcessor.Process", trace.WithAttributes(
		attribute.String("transaction_id", s.TransactionID),
		attribute.Int64("amount", s.Amount),
	))
	defer span.End()

	switch s.Status {
	case models.SessionStatusSuccess:
		return p.alreadyProcessed(s, u.Balance), nil
	case models.SessionStatusPending:
	default:
		return nil, ErrSessionClosed
	}

	if !u.HasSufficientBalance(s.Amount) {
		return &PaymentResult{
			TransactionID: s.TransactionID,
			UserID:        u.ID,
			UserPhone:     u.Phone,
			Amount:        s.Amount,
			Declined:      true,
			Reason:        models.ReasonInsufficientBalance,
			Message:       fmt.Sprintf("Insufficient balance. Required: %d, Available: %d", s.Amount, u.Balance),
		}, nil
	}

	ref := "wallet_tx_" + uuid.NewString()
	now := p.now().UTC()
	var previousBalance, newBalance int64

	err := p.ledger.RunInTx(ctx, func(tx sqlrepo.LedgerTx) error {
		nb, err := tx.DebitBalance(ctx, u.ID, s.Amount, now)
		if err != nil {
			return err
		}
		newBalance = nb
		previousBalance = nb + s.Amount

		completedAt := now
		if err := tx.InsertTransaction(ctx, &models.Transaction{
			Reference:       ref,
			Type:            models.TransactionTypePayment,
			Amount:          s.Amount,
			Status:          models.TransactionStatusSuccess,
			UserID:          u.ID,
			PreviousBalance: previousBalance,
			NewBalance:      newBalance,
			CompletedAt:     &completedAt,
			Metadata:        models.Metadata{"paySessionId": s.TransactionID, "phone": u.Phone},
			CreatedAt:       now,
		}); err != nil {
			return err
		}

		return tx.CompleteSession(ctx, sqlrepo.SessionCompletion{
			TransactionID: s.TransactionID,
			UserID:        u.ID,
			UserPhone:     u.Phone,
			WalletTxRef:   ref,
			CompletedAt:   now,
		})
	})

	switch {
	case err == nil:
	case errors.Is(err, sqlrepo.ErrDeductionFailed):
		p.log.Warn("balance deduction failed", "transaction_id", s.TransactionID, "phone", u.Phone)
		return &PaymentResult{
			TransactionID: s.TransactionID,
			UserID:        u.ID,
			UserPhone:     u.Phone,
			Amount:        s.Amount,
			Declined:      true,
			Reason:        models.ReasonDeductionFailed,
			Message:       "Failed to deduct balance. User may have insufficient funds or account is inactive.",
		}, nil
	case errors.Is(err, sqlrepo.ErrSessionNotPending):
		// lost the race to another settlement, or the session ran out of time
		return p.afterLostSettlement(ctx, s)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment failed")
		return nil, fmt.Errorf("failed to process payment: %w", err)
	}

	s.Status = models.SessionStatusSuccess
	s.UserID = &u.ID
	s.UserPhone = &u.Phone
	s.WalletTxRef = &ref
	s.CompletedAt = &now
	s.UpdatedAt = now

	p.log.Info("payment processed",
		"transaction_id", s.TransactionID, "wallet_tx_ref", ref, "phone", u.Phone, "amount", s.Amount)

	p.refreshCache(ctx, u.ID, newBalance)
	p.publish(ctx, models.WalletEvent{
		Type:          models.EventPaymentSucceeded,
		TransactionID: s.TransactionID,
		Reference:     ref,
		UserID:        u.ID,
		Amount:        s.Amount,
		Balance:       newBalance,
		OccurredAt:    now,
	})

	return &PaymentResult{
		TransactionID:   s.TransactionID,
		WalletTxRef:     ref,
		UserID:          u.ID,
		UserPhone:       u.Phone,
		Amount:          s.Amount,
		PreviousBalance: previousBalance,
		NewBalance:      newBalance,
	}, nil
}

// MarkFailed moves s from PENDING to FAILED. It reports false when s had
// already left PENDING, in which case nothing is written.
func (p *PaymentProcessor) MarkFailed(ctx context.Context, s *models.PaySession, reason models.FailureReason) (bool, error) {
	now := p.now().UTC()

	changed, err := p.sessions.MarkFailed(ctx, s.TransactionID, reason, now)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	r := string(reason)
	s.Status = models.SessionStatusFailed
	s.FailureReason = &r
	s.CompletedAt = &now
	s.UpdatedAt = now

	p.log.Info("payment marked as failed", "transaction_id", s.TransactionID, "reason", reason)

	p.publish(ctx, models.WalletEvent{
		Type:          models.EventPaymentFailed,
		TransactionID: s.TransactionID,
		Amount:        s.Amount,
		Reason:        r,
		OccurredAt:    now,
	})

	return true, nil
}

// Topup credits the account owning phone and records a TOPUP entry.
func (p *PaymentProcessor) Topup(ctx context.Context, phone string, amount int64) (*models.TopupResponse, error) {
	return p.topup(ctx, "wallet_tx_"+uuid.NewString(), "", phone, amount)
}

// ApplyTopup is Topup keyed by the producer's request ID. The ID becomes the
// ledger reference, so a redelivered command fails the insert and rolls its
// credit back with ErrTopupApplied.
func (p *PaymentProcessor) ApplyTopup(ctx context.Context, requestID, phone string, amount int64) (*models.TopupResponse, error) {
	if requestID == "" {
		return nil, errors.New("request id is required")
	}
	return p.topup(ctx, "wallet_topup_"+requestID, requestID, phone, amount)
}

func (p *PaymentProcessor) topup(ctx context.Context, ref, requestID, phone string, amount int64) (*models.TopupResponse, error) {
	ctx, span := p.tracer.Start(ctx, "PaymentProcessor.Topup", trace.WithAttributes(attribute.Int64("amount", amount)))
	defer span.End()

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	user, err := p.users.GetUserByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	meta := models.Metadata{"phone": phone}
	if requestID != "" {
		meta["requestId"] = requestID
	}
	now := p.now().UTC()
	var newBalance int64

	err = p.ledger.RunInTx(ctx, func(tx sqlrepo.LedgerTx) error {
		nb, err := tx.CreditBalance(ctx, user.ID, amount, now)
		if err != nil {
			return err
		}
		newBalance = nb

		completedAt := now
		return tx.InsertTransaction(ctx, &models.Transaction{
			Reference:       ref,
			Type:            models.TransactionTypeTopup,
			Amount:          amount,
			Status:          models.TransactionStatusSuccess,
			UserID:          user.ID,
			PreviousBalance: nb - amount,
			NewBalance:      nb,
			CompletedAt:     &completedAt,
			Metadata:        meta,
			CreatedAt:       now,
		})
	})
	if errors.Is(err, sqlrepo.ErrDuplicate) {
		return nil, ErrTopupApplied
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "topup failed")
		return nil, fmt.Errorf("failed to process topup: %w", err)
	}

	p.log.Info("topup processed", "phone", phone, "amount", amount, "new_balance", newBalance, "reference", ref)

	p.refreshCache(ctx, user.ID, newBalance)
	p.publish(ctx, models.WalletEvent{
		Type:          models.EventWalletToppedUp,
		TransactionID: ref,
		Reference:     ref,
		UserID:        user.ID,
		Amount:        amount,
		Balance:       newBalance,
		OccurredAt:    now,
	})

	return &models.TopupResponse{
		Balance:       newBalance,
		TransactionID: ref,
		Amount:        amount,
	}, nil
}

func (p *PaymentProcessor) afterLostSettlement(ctx context.Context, s *models.PaySession) (*PaymentResult, error) {
	fresh, err := p.sessions.GetSession(ctx, s.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload pay session: %w", err)
	}
	*s = *fresh

	switch {
	case s.Status == models.SessionStatusSuccess:
		var balance int64
		if s.UserID != nil {
			if u, err := p.users.GetUserByID(ctx, *s.UserID); err == nil {
				balance = u.Balance
			}
		}
		return p.alreadyProcessed(s, balance), nil
	case s.Status == models.SessionStatusPending && s.IsExpired(p.now().UTC()):
		return nil, ErrSessionExpired
	case s.Status == models.SessionStatusExpired:
		return nil, ErrSessionExpired
	default:
		return nil, ErrSessionClosed
	}
}

func (p *PaymentProcessor) alreadyProcessed(s *models.PaySession, balance int64) *PaymentResult {
	res := &PaymentResult{
		TransactionID:    s.TransactionID,
		Amount:           s.Amount,
		NewBalance:       balance,
		AlreadyProcessed: true,
		Message:          "Payment already processed",
	}
	if s.WalletTxRef != nil {
		res.WalletTxRef = *s.WalletTxRef
	}
	if s.UserID != nil {
		res.UserID = *s.UserID
	}
	if s.UserPhone != nil {
		res.UserPhone = *s.UserPhone
	}
	return res
}

func (p *PaymentProcessor) refreshCache(ctx context.Context, userID string, balance int64) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetBalance(ctx, userID, balance); err != nil {
		p.log.Warn("failed to update balance cache", "user_id", userID, "err", err)
	}
}

func (p *PaymentProcessor) publish(ctx context.Context, event models.WalletEvent) {
	if err := p.events.PublishEvent(ctx, event); err != nil {
		p.log.Warn("failed to publish wallet event", "type", event.Type, "transaction_id", event.TransactionID, "err", err)
	}
}
