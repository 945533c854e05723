package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"wallet-gateway/internal/config"
	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/sqlrepo"
)

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "X-Wallet-Signature"

// RetryPolicy bounds delivery attempts within one Deliver call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep waits between attempts; nil means a timer honouring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(cfg config.CallbackConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
	}
}

// Backoff returns the wait after the given failed attempt: base * 2^(attempt-1).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay * time.Duration(1<<(attempt-1))
}

// Span bounds how long one Deliver call can run with the given request timeout.
func (p RetryPolicy) Span(timeout time.Duration) time.Duration {
	span := time.Duration(p.MaxAttempts) * timeout
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		span += p.Backoff(attempt)
	}
	return span
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Dispatcher sends signed outcome callbacks to the initiating service.
type Dispatcher struct {
	sessions SessionStore
	client   *http.Client
	secret   []byte
	policy   RetryPolicy
	// ceiling on cumulative attempts per session, 0 means no ceiling
	maxTotal int
	// sessions with activity more recent than this may still be in flight
	idle time.Duration
	log      *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewDispatcher(sessions SessionStore, client *http.Client, cfg config.CallbackConfig, policy RetryPolicy, log *slog.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Dispatcher{
		sessions: sessions,
		client:   client,
		secret:   []byte(cfg.Secret),
		policy:   policy,
		maxTotal: cfg.MaxTotalAttempts,
		idle:     policy.Span(cfg.Timeout) + cfg.Timeout,
		log:      log,
		now:      time.Now,
	}
}

// Deliver sends the outcome of s and reports whether the receiver accepted
// it. It never changes the session status, only callback bookkeeping. Each
// send is counted in the store first, so concurrent deliveries of one
// session share the attempt ceiling.
func (d *Dispatcher) Deliver(ctx context.Context, s *models.PaySession) bool {
	if s.CallbackDelivered {
		return true
	}

	target, payload := d.buildPayload(s)
	body, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("failed to marshal callback payload", "transaction_id", s.TransactionID, "err", err)
		return false
	}
	signature := Sign(d.secret, body)

	var lastErr error
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		at := d.now().UTC()
		total, err := d.sessions.ReserveCallbackAttempt(ctx, s.TransactionID, d.maxTotal, at)
		if errors.Is(err, sqlrepo.ErrCallbackNotOwed) {
			return d.notOwed(ctx, s)
		}
		if err != nil {
			d.log.Error("failed to reserve callback attempt", "transaction_id", s.TransactionID, "err", err)
			return false
		}
		s.CallbackAttempts = total
		s.CallbackLastAttemptAt = &at

		lastErr = d.send(ctx, target, body, signature)
		if lastErr == nil {
			if err := d.sessions.MarkCallbackDelivered(ctx, s.TransactionID, d.now().UTC()); err != nil {
				d.log.Error("failed to record callback delivery", "transaction_id", s.TransactionID, "err", err)
			}
			s.CallbackDelivered = true
			d.log.Info("callback delivered",
				"transaction_id", s.TransactionID, "status", payload.Status, "attempt", total)
			return true
		}

		d.log.Warn("callback attempt failed",
			"transaction_id", s.TransactionID, "attempt", total, "err", lastErr)

		if d.maxTotal > 0 && total >= d.maxTotal {
			break
		}
		if attempt < d.policy.MaxAttempts {
			if err := d.policy.wait(ctx, d.policy.Backoff(attempt)); err != nil {
				return false
			}
		}
	}

	d.log.Error("all callback attempts failed", "transaction_id", s.TransactionID, "err", lastErr)
	return false
}

// notOwed refreshes s after the store refused another attempt.
func (d *Dispatcher) notOwed(ctx context.Context, s *models.PaySession) bool {
	fresh, err := d.sessions.GetSession(ctx, s.TransactionID)
	if err != nil {
		d.log.Error("failed to reload pay session", "transaction_id", s.TransactionID, "err", err)
		return false
	}
	s.CallbackAttempts = fresh.CallbackAttempts
	s.CallbackDelivered = fresh.CallbackDelivered
	s.CallbackLastAttemptAt = fresh.CallbackLastAttemptAt

	if !fresh.CallbackDelivered {
		d.log.Warn("callback attempts exhausted", "transaction_id", s.TransactionID, "attempts", fresh.CallbackAttempts)
	}
	return fresh.CallbackDelivered
}

// DeliverAsync runs Deliver in the background on a copy of s, detached
// from the caller's cancellation. Wait blocks until every call returns.
func (d *Dispatcher) DeliverAsync(ctx context.Context, s *models.PaySession) {
	session := *s
	bg := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Deliver(bg, &session)
	}()
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitContext is Wait bounded by ctx. Deliveries still running when ctx ends
// keep their reserved attempts and are picked up by RetryUndelivered later.
func (d *Dispatcher) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryUndelivered re-attempts SUCCESS callbacks the receiver never
// acknowledged and returns how many went through.
func (d *Dispatcher) RetryUndelivered(ctx context.Context, limit int) (int, error) {
	maxTotal := d.maxTotal
	if maxTotal <= 0 {
		maxTotal = d.policy.MaxAttempts
	}

	idleSince := d.now().UTC().Add(-d.idle)
	pending, err := d.sessions.ListUndelivered(ctx, maxTotal, idleSince, limit)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		if d.Deliver(ctx, &pending[i]) {
			delivered++
		}
	}

	if len(pending) > 0 {
		d.log.Info("retried undelivered callbacks", "count", len(pending), "delivered", delivered)
	}
	return delivered, nil
}

func (d *Dispatcher) buildPayload(s *models.PaySession) (string, models.CallbackPayload) {
	payload := models.CallbackPayload{
		TransactionID: s.TransactionID,
		Amount:        s.Amount,
		UserPhone:     s.UserPhone,
		UserID:        s.UserID,
		Status:        string(models.SessionStatusSuccess),
		WalletTxRef:   s.WalletTxRef,
		Timestamp:     d.now().UTC().Format(time.RFC3339Nano),
	}
	target := s.CallbackURL

	if s.Status != models.SessionStatusSuccess {
		payload.Status = string(models.SessionStatusFailed)
		payload.WalletTxRef = nil
		payload.FailureReason = s.FailureReason
		if s.FailureCallbackURL != nil && *s.FailureCallbackURL != "" {
			target = *s.FailureCallbackURL
		}
	}
	return target, payload
}

func (d *Dispatcher) send(ctx context.Context, target string, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time.
func Verify(secret, body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
