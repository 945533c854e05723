package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"wallet-gateway/internal/config"
	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/redisrepo"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/services"
	"wallet-gateway/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
	db        *sqlx.DB
	callbacks *httptest.Server
	received  chan string
}

func newTestServer(t *testing.T, loginLimit int) *testServer {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	db := testutil.NewSQLiteDB(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	received := make(chan string, 16)
	callbacks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(callbacks.Close)

	cfg := &config.Config{
		Server:    config.ServerConfig{CORSOrigins: []string{"*"}},
		Payment:   config.PaymentConfig{SessionTTL: time.Hour},
		Callback:  config.CallbackConfig{Secret: "secret", Timeout: time.Second, MaxAttempts: 1, MaxTotalAttempts: 10},
		RateLimit: config.RateLimitConfig{Window: time.Minute, PaymentLimit: 100, LoginLimit: loginLimit},
	}

	users := sqlrepo.NewUserRepository(db)
	sessions := sqlrepo.NewSessionRepository(db)
	ledger := sqlrepo.NewLedgerRepository(db)
	balances := redisrepo.NewWalletRepository(rdb)
	tokens := redisrepo.NewTokenRepository(rdb)

	gate, err := services.NewAuthGate(users, bcrypt.MinCost, log)
	if err != nil {
		t.Fatalf("NewAuthGate() error = %v", err)
	}
	manager := services.NewSessionManager(sessions, cfg.Payment, log)
	payments := services.NewPaymentProcessor(users, sessions, ledger, balances, services.NopPublisher{}, log)
	dispatcher := services.NewDispatcher(sessions, nil, cfg.Callback, services.NewRetryPolicy(cfg.Callback), log)
	t.Cleanup(dispatcher.Wait)

	h := New(Services{
		Sessions: manager,
		Checkout: services.NewCheckout(manager, gate, payments, dispatcher, log),
		Payments: payments,
		Accounts: services.NewAccountService(users, payments, gate, balances, tokens, bcrypt.MinCost, time.Hour, log),
		History:  services.NewHistoryService(users, sessions, ledger),
	}, redisrepo.NewRateLimiter(rdb), db, cfg, log)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, db: db, callbacks: callbacks, received: received}
}

func (s *testServer) postJSON(t *testing.T, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(s.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return decodeBody(t, resp)
}

func (s *testServer) getJSON(t *testing.T, path string, header http.Header) (int, map[string]interface{}) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, s.URL+path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return decodeBody(t, resp)
}

func (s *testServer) page(t *testing.T, method, path string, form url.Values) (int, string) {
	t.Helper()
	var (
		resp *http.Response
		err  error
	)
	if method == http.MethodPost {
		resp, err = http.PostForm(s.URL+path, form)
	} else {
		resp, err = http.Get(s.URL + path)
	}
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func (s *testServer) createUser(t *testing.T, phone string, balance int64) string {
	t.Helper()
	code, body := s.postJSON(t, "/api/users", map[string]interface{}{"phone": phone, "pin": "1234", "initialBalance": balance})
	if code != http.StatusCreated {
		t.Fatalf("create user = %d %v", code, body)
	}
	return body["userId"].(string)
}

func (s *testServer) createSession(t *testing.T, amount int64) string {
	t.Helper()
	code, body := s.postJSON(t, "/wallet/pay", map[string]interface{}{
		"amount":      amount,
		"callbackUrl": s.callbacks.URL + "/orders/42/paid",
	})
	if code != http.StatusCreated {
		t.Fatalf("create session = %d %v", code, body)
	}
	return body["transactionId"].(string)
}

func decodeBody(t *testing.T, resp *http.Response) (int, map[string]interface{}) {
	t.Helper()
	defer resp.Body.Close()
	out := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestCreatePaySession(t *testing.T) {
	srv := newTestServer(t, 10)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "valid", body: `{"amount":1500,"callbackUrl":"https://shop.local/cb"}`, wantCode: http.StatusCreated},
		{name: "fractional amount", body: `{"amount":10.5,"callbackUrl":"https://shop.local/cb"}`, wantCode: http.StatusBadRequest},
		{name: "zero amount", body: `{"amount":0,"callbackUrl":"https://shop.local/cb"}`, wantCode: http.StatusBadRequest},
		{name: "malformed callback", body: `{"amount":100,"callbackUrl":"not a url"}`, wantCode: http.StatusBadRequest},
		{name: "no callback and no default", body: `{"amount":100}`, wantCode: http.StatusBadRequest},
		{name: "invalid json", body: `{"amount":`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/wallet/pay", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			code, body := decodeBody(t, resp)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%v)", code, tt.wantCode, body)
			}
			if code != http.StatusCreated {
				return
			}
			id, _ := body["transactionId"].(string)
			if !strings.HasPrefix(id, "tx_") || body["payUrl"] != srv.URL+"/wallet/pay/"+id {
				t.Fatalf("response = %v", body)
			}
		})
	}
}

func TestPaymentPageFlow(t *testing.T) {
	srv := newTestServer(t, 10)
	srv.createUser(t, "01712345678", 5000)
	id := srv.createSession(t, 1500)

	code, html := srv.page(t, http.MethodGet, "/wallet/pay/"+id, nil)
	if code != http.StatusOK || !strings.Contains(html, "Confirm payment") || !strings.Contains(html, "15.00") {
		t.Fatalf("pay page = %d\n%s", code, html)
	}

	code, html = srv.page(t, http.MethodPost, "/wallet/pay/"+id, url.Values{"phone": {"01712345678"}, "pin": {"1234"}})
	if code != http.StatusOK || !strings.Contains(html, "Payment Successful") || !strings.Contains(html, "35.00") {
		t.Fatalf("submit = %d\n%s", code, html)
	}

	select {
	case path := <-srv.received:
		if path != "/orders/42/paid" {
			t.Fatalf("callback path = %s", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("callback was not delivered")
	}

	code, html = srv.page(t, http.MethodGet, "/wallet/pay/"+id, nil)
	if code != http.StatusOK || !strings.Contains(html, "Payment Already Completed") {
		t.Fatalf("revisit = %d\n%s", code, html)
	}
	code, html = srv.page(t, http.MethodPost, "/wallet/pay/"+id, url.Values{"phone": {"01712345678"}, "pin": {"1234"}})
	if code != http.StatusOK || !strings.Contains(html, "Payment Already Completed") {
		t.Fatalf("resubmit = %d\n%s", code, html)
	}
}

func TestPaymentPageFailures(t *testing.T) {
	srv := newTestServer(t, 10)
	srv.createUser(t, "01712345678", 5000)

	id := srv.createSession(t, 100)
	code, html := srv.page(t, http.MethodPost, "/wallet/pay/"+id, url.Values{"phone": {"01712345678"}})
	if code != http.StatusBadRequest || !strings.Contains(html, "Phone number and PIN are required") {
		t.Fatalf("missing pin = %d\n%s", code, html)
	}

	code, html = srv.page(t, http.MethodPost, "/wallet/pay/"+id, url.Values{"phone": {"01712345678"}, "pin": {"9999"}})
	if code != http.StatusOK || !strings.Contains(html, "Invalid phone number or PIN") {
		t.Fatalf("wrong pin = %d\n%s", code, html)
	}

	code, html = srv.page(t, http.MethodGet, "/wallet/pay/"+id, nil)
	if code != http.StatusOK || !strings.Contains(html, "Transaction already failed") {
		t.Fatalf("failed session page = %d\n%s", code, html)
	}

	code, html = srv.page(t, http.MethodGet, "/wallet/pay/tx_unknown", nil)
	if code != http.StatusNotFound || !strings.Contains(html, "Transaction not found") {
		t.Fatalf("unknown session = %d\n%s", code, html)
	}
}

func TestUsersAPI(t *testing.T) {
	srv := newTestServer(t, 10)
	userID := srv.createUser(t, "01712345678", 2500)

	code, body := srv.postJSON(t, "/api/users", map[string]interface{}{"phone": "01712345678", "pin": "1234"})
	if code != http.StatusConflict {
		t.Fatalf("duplicate = %d %v", code, body)
	}
	code, _ = srv.postJSON(t, "/api/users", map[string]interface{}{"phone": "12345", "pin": "1234"})
	if code != http.StatusBadRequest {
		t.Fatalf("bad phone = %d", code)
	}

	code, body = srv.getJSON(t, "/api/users/"+userID, nil)
	if code != http.StatusOK || body["phone"] != "01712345678" || body["balance"] != float64(2500) {
		t.Fatalf("get user = %d %v", code, body)
	}
	if _, ok := body["pinHash"]; ok {
		t.Fatalf("user response exposes the pin hash")
	}

	code, body = srv.getJSON(t, "/api/users/phone/01712345678", nil)
	if code != http.StatusOK || body["userId"] != userID {
		t.Fatalf("get by phone = %d %v", code, body)
	}

	code, _ = srv.getJSON(t, "/api/users/not-a-uuid", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", code)
	}
	code, _ = srv.getJSON(t, "/api/users/3b241101-e2bb-4255-8caf-4136c566a962", nil)
	if code != http.StatusNotFound {
		t.Fatalf("unknown user = %d", code)
	}

	code, body = srv.getJSON(t, "/api/users/"+userID+"/balance", nil)
	if code != http.StatusOK || body["balance"] != float64(2500) {
		t.Fatalf("balance = %d %v", code, body)
	}

	code, body = srv.postJSON(t, "/wallet/topup", models.TopupRequest{Phone: "01712345678", Amount: 500})
	if code != http.StatusOK || body["balance"] != float64(3000) {
		t.Fatalf("topup = %d %v", code, body)
	}
	reference := body["transactionId"].(string)

	code, body = srv.getJSON(t, "/api/users/"+userID+"/transactions?type=topup&limit=1", nil)
	if code != http.StatusOK {
		t.Fatalf("transactions = %d %v", code, body)
	}
	pagination := body["pagination"].(map[string]interface{})
	if pagination["total"] != float64(2) || pagination["pages"] != float64(2) {
		t.Fatalf("pagination = %v", pagination)
	}
	code, _ = srv.getJSON(t, "/api/users/"+userID+"/transactions?type=bogus", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad type filter = %d", code)
	}

	code, body = srv.getJSON(t, "/api/users/"+userID+"/transactions/stats", nil)
	if code != http.StatusOK || body["totalTransactions"] != float64(2) {
		t.Fatalf("stats = %d %v", code, body)
	}

	code, body = srv.getJSON(t, "/api/transactions/"+reference, nil)
	if code != http.StatusOK || body["paySession"] != nil {
		t.Fatalf("transaction detail = %d %v", code, body)
	}
	code, _ = srv.getJSON(t, "/api/transactions/wallet_tx_missing", nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing transaction = %d", code)
	}
}

func TestAuthAPI(t *testing.T) {
	srv := newTestServer(t, 10)
	userID := srv.createUser(t, "01712345678", 0)

	code, body := srv.postJSON(t, "/api/auth/login", models.LoginRequest{Phone: "01712345678", Pin: "0000"})
	if code != http.StatusUnauthorized || body["message"] != "Invalid phone number or PIN" {
		t.Fatalf("wrong pin = %d %v", code, body)
	}
	code, unknown := srv.postJSON(t, "/api/auth/login", models.LoginRequest{Phone: "01700000000", Pin: "1234"})
	if code != http.StatusUnauthorized || unknown["message"] != body["message"] {
		t.Fatalf("unknown phone = %d %v", code, unknown)
	}

	code, body = srv.postJSON(t, "/api/auth/login", models.LoginRequest{Phone: "01712345678", Pin: "1234"})
	if code != http.StatusOK || body["userId"] != userID {
		t.Fatalf("login = %d %v", code, body)
	}
	token := body["sessionToken"].(string)

	bearer := http.Header{"Authorization": {"Bearer " + token}}
	code, body = srv.getJSON(t, "/api/auth/validate", bearer)
	if code != http.StatusOK || body["valid"] != true {
		t.Fatalf("validate = %d %v", code, body)
	}

	code, _ = srv.postJSON(t, "/api/auth/logout", models.LogoutRequest{SessionToken: token})
	if code != http.StatusOK {
		t.Fatalf("logout = %d", code)
	}
	code, _ = srv.getJSON(t, "/api/auth/validate", http.Header{"X-Session-Token": {token}})
	if code != http.StatusUnauthorized {
		t.Fatalf("validate after logout = %d", code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)
	srv.createUser(t, "01712345678", 0)

	creds := models.LoginRequest{Phone: "01712345678", Pin: "0000"}
	for i := 0; i < 2; i++ {
		if code, _ := srv.postJSON(t, "/api/auth/login", creds); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i+1, code)
		}
	}

	b, _ := json.Marshal(creds)
	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q, want 60", resp.Header.Get("Retry-After"))
	}
	if code, _ := decodeBody(t, resp); code != http.StatusTooManyRequests {
		t.Fatalf("third attempt = %d, want 429", code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, 10)

	code, body := srv.getJSON(t, "/health", nil)
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", code, body)
	}

	srv.db.Close()
	code, _ = srv.getJSON(t, "/health", nil)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("health with closed db = %d, want 503", code)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0.00"},
		{in: 5, want: "0.05"},
		{in: 1500, want: "15.00"},
		{in: 123456, want: "1234.56"},
		{in: -250, want: "-2.50"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
