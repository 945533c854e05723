package handler

import (
	"net/http"
	"strconv"
	"strings"

	"wallet-gateway/internal/models"

	"github.com/go-chi/chi/v5"
)

// @Summary Create a wallet user
// @Description Registers a user with a bcrypt-hashed PIN and an optional initial balance
// @Tags users
// @Accept json
// @Produce json
// @Param user body models.CreateUserRequest true "User request"
// @Success 201 {object} models.UserResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/users [post]
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.svc.Accounts.CreateUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.NewUserResponse(user))
}

// @Summary Get a user
// @Tags users
// @Produce json
// @Param userId path string true "User ID (UUIDv4)"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{userId} [get]
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Accounts.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewUserResponse(user))
}

// @Summary Get a user by phone number
// @Tags users
// @Produce json
// @Param phone path string true "Phone number"
// @Success 200 {object} models.UserResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/phone/{phone} [get]
func (h *Handler) getUserByPhone(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Accounts.GetUserByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewUserResponse(user))
}

// @Summary Get wallet balance
// @Description Reads the cached balance, falling back to the database
// @Tags users
// @Produce json
// @Param userId path string true "User ID (UUIDv4)"
// @Success 200 {object} models.BalanceResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{userId}/balance [get]
func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	balance, err := h.svc.Accounts.Balance(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// @Summary List a user's transactions
// @Description Newest first, optionally filtered by type and status
// @Tags transactions
// @Produce json
// @Param userId path string true "User ID (UUIDv4)"
// @Param page query int false "Page (from 1)"
// @Param limit query int false "Page size (max 100)"
// @Param type query string false "PAYMENT, TOPUP or REFUND"
// @Param status query string false "Ledger entry status"
// @Success 200 {object} models.TransactionListResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{userId}/transactions [get]
func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	limit, err := queryInt(q.Get("limit"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "limit must be a number")
		return
	}

	filter := models.TransactionFilter{
		Type:   models.TransactionType(strings.ToUpper(q.Get("type"))),
		Status: strings.ToUpper(q.Get("status")),
	}
	if err := h.validate.Var(string(filter.Type), "omitempty,oneof=PAYMENT TOPUP REFUND"); err != nil {
		h.writeError(w, http.StatusBadRequest, "type must be PAYMENT, TOPUP or REFUND")
		return
	}

	list, err := h.svc.History.ListUserTransactions(r.Context(), userID, page, limit, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// @Summary Transaction statistics for a user
// @Tags transactions
// @Produce json
// @Param userId path string true "User ID (UUIDv4)"
// @Success 200 {object} models.TransactionStatsResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{userId}/transactions/stats [get]
func (h *Handler) transactionStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.History.Stats(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// @Summary Get a ledger entry
// @Description Returns the entry and the pay session it settled, with callback bookkeeping
// @Tags transactions
// @Produce json
// @Param reference path string true "Ledger reference"
// @Success 200 {object} models.TransactionDetailResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/transactions/{reference} [get]
func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.History.GetTransaction(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userId")
	if err := h.validate.Var(userID, "required,uuid4"); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return "", false
	}
	return userID, true
}

func queryInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
