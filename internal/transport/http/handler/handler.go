package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	_ "wallet-gateway/docs"
	"wallet-gateway/internal/config"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Services struct {
	Sessions *services.SessionManager
	Checkout *services.Checkout
	Payments *services.PaymentProcessor
	Accounts *services.AccountService
	History  *services.HistoryService
}

type Handler struct {
	svc       Services
	limiter   Limiter
	db        Pinger
	server    config.ServerConfig
	rateLimit config.RateLimitConfig
	validate  *validator.Validate
	pages     *pages
	log       *slog.Logger
	tracer    trace.Tracer
}

func New(svc Services, limiter Limiter, db Pinger, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{
		svc:       svc,
		limiter:   limiter,
		db:        db,
		server:    cfg.Server,
		rateLimit: cfg.RateLimit,
		validate:  validator.New(),
		pages:     loadPages(),
		log:       log,
		tracer:    otel.Tracer("wallet-http"),
	}
}

// @title Wallet Gateway API
// @version 1.0
// @description Hosted wallet payments: pay sessions, wallet users and ledger queries.
// @BasePath /
// @schemes http https
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)

	r.Route("/wallet", func(r chi.Router) {
		r.Post("/pay", h.createPaySession)
		r.Get("/pay/{transactionId}", h.payPage)
		r.With(h.limit("pay", h.rateLimit.PaymentLimit)).Post("/pay/{transactionId}", h.submitPayment)
		r.Post("/topup", h.topup)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", h.createUser)
		r.Get("/users/phone/{phone}", h.getUserByPhone)
		r.Get("/users/{userId}", h.getUser)
		r.Get("/users/{userId}/balance", h.getBalance)
		r.Get("/users/{userId}/transactions", h.listTransactions)
		r.Get("/users/{userId}/transactions/stats", h.transactionStats)

		r.With(h.limit("login", h.rateLimit.LoginLimit)).Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)
		r.Get("/auth/validate", h.validateToken)

		r.Get("/transactions/{reference}", h.getTransaction)
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("health check failed", "err", err)
		h.writeError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}

// fail maps a service error to its status code. Unknown errors are logged
// and reported without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *services.AuthError

	switch {
	case errors.As(err, &authErr), errors.Is(err, services.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, "Invalid phone number or PIN")
	case errors.Is(err, services.ErrInvalidToken):
		h.writeError(w, http.StatusUnauthorized, "Invalid or expired session token")
	case errors.Is(err, sqlrepo.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, sqlrepo.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, sqlrepo.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, services.ErrPhoneTaken):
		h.writeError(w, http.StatusConflict, "User with this phone number already exists")
	case errors.Is(err, services.ErrInvalidAmount):
		h.writeError(w, http.StatusBadRequest, "Amount must be positive")
	case errors.Is(err, services.ErrInvalidCallbackURL):
		h.writeError(w, http.StatusBadRequest, "Callback URL must be an absolute http(s) URL")
	case errors.Is(err, services.ErrInvalidPhone):
		h.writeError(w, http.StatusBadRequest, "Invalid phone number format")
	case errors.Is(err, services.ErrInvalidPIN):
		h.writeError(w, http.StatusBadRequest, "PIN must be 4-6 digits")
	case errors.Is(err, services.ErrMissingCredentials):
		h.writeError(w, http.StatusBadRequest, "Phone number and PIN are required")
	default:
		h.log.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"error":   http.StatusText(statusCode),
		"message": message,
		"code":    statusCode,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
