package services

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wallet-gateway/internal/config"
	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/redisrepo"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/testutil"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-webhook-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeCache struct {
	mu       sync.Mutex
	balances map[string]int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{balances: map[string]int64{}}
}

func (c *fakeCache) SetBalance(_ context.Context, userID string, balance int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[userID] = balance
	return nil
}

func (c *fakeCache) GetBalance(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.balances[userID]
	if !ok {
		return 0, redisrepo.ErrBalanceNotFound
	}
	return b, nil
}

func (c *fakeCache) DeleteBalance(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.balances, userID)
	return nil
}

func (c *fakeCache) get(userID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.balances[userID]
	return b, ok
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.WalletEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, e models.WalletEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: map[string]string{}}
}

func (f *fakeTokens) SaveToken(_ context.Context, token, userID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = userID
	return nil
}

func (f *fakeTokens) GetUserID(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	if !ok {
		return "", redisrepo.ErrTokenNotFound
	}
	return id, nil
}

func (f *fakeTokens) DeleteToken(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[token]
	delete(f.tokens, token)
	return ok, nil
}

// receiver is a callback endpoint that records what it was sent.
type receiver struct {
	mu       sync.Mutex
	status   int
	requests []receivedCallback
	server   *httptest.Server
}

type receivedCallback struct {
	Method    string
	Path      string
	Signature string
	Body      []byte
}

func newReceiver(t *testing.T, status int) *receiver {
	t.Helper()
	r := &receiver{status: status}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.requests = append(r.requests, receivedCallback{
			Method:    req.Method,
			Path:      req.URL.Path,
			Signature: req.Header.Get(SignatureHeader),
			Body:      body,
		})
		code := r.status
		r.mu.Unlock()
		w.WriteHeader(code)
	}))
	t.Cleanup(r.server.Close)
	return r
}

func (r *receiver) setStatus(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = code
}

func (r *receiver) received() []receivedCallback {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]receivedCallback(nil), r.requests...)
}

func (r *receiver) url(path string) string {
	return r.server.URL + path
}

type harness struct {
	db         *sqlx.DB
	users      *sqlrepo.UserRepository
	sessions   *sqlrepo.SessionRepository
	ledger     *sqlrepo.LedgerRepository
	cache      *fakeCache
	events     *fakePublisher
	tokens     *fakeTokens
	manager    *SessionManager
	gate       *AuthGate
	payments   *PaymentProcessor
	dispatcher *Dispatcher
	checkout   *Checkout
	accounts   *AccountService
	history    *HistoryService
	delays     *[]time.Duration
}

func newHarness(t *testing.T, paymentServiceURL string) *harness {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	log := discardLogger()

	h := &harness{
		db:       db,
		users:    sqlrepo.NewUserRepository(db),
		sessions: sqlrepo.NewSessionRepository(db),
		ledger:   sqlrepo.NewLedgerRepository(db),
		cache:    newFakeCache(),
		events:   &fakePublisher{},
		tokens:   newFakeTokens(),
	}

	h.manager = NewSessionManager(h.sessions, config.PaymentConfig{
		SessionTTL:        time.Hour,
		PaymentServiceURL: paymentServiceURL,
	}, log)

	gate, err := NewAuthGate(h.users, bcrypt.MinCost, log)
	if err != nil {
		t.Fatalf("NewAuthGate() error = %v", err)
	}
	h.gate = gate

	h.payments = NewPaymentProcessor(h.users, h.sessions, h.ledger, h.cache, h.events, log)

	var mu sync.Mutex
	delays := []time.Duration{}
	h.delays = &delays
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			mu.Lock()
			defer mu.Unlock()
			delays = append(delays, d)
			return nil
		},
	}
	h.dispatcher = NewDispatcher(h.sessions, nil, config.CallbackConfig{
		Secret:           testSecret,
		Timeout:          2 * time.Second,
		MaxTotalAttempts: 10,
	}, policy, log)

	h.checkout = NewCheckout(h.manager, h.gate, h.payments, h.dispatcher, log)
	h.accounts = NewAccountService(h.users, h.payments, h.gate, h.cache, h.tokens, bcrypt.MinCost, time.Hour, log)
	h.history = NewHistoryService(h.users, h.sessions, h.ledger)

	return h
}

func (h *harness) createSession(t *testing.T, amount int64, callbackURL string) *models.PaySession {
	t.Helper()
	s, err := h.manager.Create(context.Background(), models.CreateSessionRequest{Amount: amount, CallbackURL: callbackURL})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return s
}

func (h *harness) reload(t *testing.T, transactionID string) *models.PaySession {
	t.Helper()
	s, err := h.sessions.GetSession(context.Background(), transactionID)
	if err != nil {
		t.Fatalf("GetSession(%s) error = %v", transactionID, err)
	}
	return s
}

// failingLedger wraps the real ledger and fails the named write inside the
// transaction, after the earlier writes have already run.
type failingLedger struct {
	*sqlrepo.LedgerRepository
	failOn string
	err    error
}

func (l *failingLedger) RunInTx(ctx context.Context, fn func(tx sqlrepo.LedgerTx) error) error {
	return l.LedgerRepository.RunInTx(ctx, func(tx sqlrepo.LedgerTx) error {
		return fn(&failingTx{LedgerTx: tx, failOn: l.failOn, err: l.err})
	})
}

type failingTx struct {
	sqlrepo.LedgerTx
	failOn string
	err    error
}

func (tx *failingTx) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	if tx.failOn == "insert" {
		return tx.err
	}
	return tx.LedgerTx.InsertTransaction(ctx, t)
}

func (tx *failingTx) CompleteSession(ctx context.Context, c sqlrepo.SessionCompletion) error {
	if tx.failOn == "complete" {
		return tx.err
	}
	return tx.LedgerTx.CompleteSession(ctx, c)
}
