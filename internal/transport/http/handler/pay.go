package handler

import (
	"errors"
	"net/http"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/services"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// @Summary Create a pay session
// @Description Opens a PENDING pay session and returns the hosted payment page URL
// @Tags payments
// @Accept json
// @Produce json
// @Param session body models.CreateSessionRequest true "Session request"
// @Success 201 {object} models.CreateSessionResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /wallet/pay [post]
func (h *Handler) createPaySession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePaySession")
	defer span.End()

	var req models.CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.svc.Sessions.Create(ctx, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("transaction_id", session.TransactionID))

	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{
		TransactionID: session.TransactionID,
		PayURL:        h.baseURL(r) + "/wallet/pay/" + session.TransactionID,
		ExpiresAt:     session.ExpiresAt,
	})
}

// payPage renders the payment form, or the terminal state of the session.
func (h *Handler) payPage(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	session, decision, err := h.svc.Checkout.View(r.Context(), transactionID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	if !decision.Processable {
		h.renderOutcome(w, services.ClosedOutcome(session, decision))
		return
	}

	h.render(w, http.StatusOK, h.pages.pay, payView{
		TransactionID: session.TransactionID,
		Amount:        session.Amount,
		ExpiresAt:     session.ExpiresAt,
	})
}

// submitPayment takes the payer's phone and PIN from the form.
func (h *Handler) submitPayment(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	ctx, span := h.tracer.Start(r.Context(), "SubmitPayment",
		trace.WithAttributes(attribute.String("transaction_id", transactionID)))
	defer span.End()

	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest, "Invalid request", "The payment form could not be read")
		return
	}
	phone := r.PostForm.Get("phone")
	pin := r.PostForm.Get("pin")

	outcome, err := h.svc.Checkout.Submit(ctx, transactionID, phone, pin)
	if err != nil {
		if errors.Is(err, services.ErrMissingCredentials) {
			h.rerenderForm(w, r, transactionID, "Phone number and PIN are required")
			return
		}
		h.pageError(w, r, err)
		return
	}

	span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
	h.renderOutcome(w, outcome)
}

func (h *Handler) rerenderForm(w http.ResponseWriter, r *http.Request, transactionID, message string) {
	session, decision, err := h.svc.Checkout.View(r.Context(), transactionID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	if !decision.Processable {
		h.renderOutcome(w, services.ClosedOutcome(session, decision))
		return
	}
	h.render(w, http.StatusBadRequest, h.pages.pay, payView{
		TransactionID: session.TransactionID,
		Amount:        session.Amount,
		ExpiresAt:     session.ExpiresAt,
		Error:         message,
	})
}

func (h *Handler) renderOutcome(w http.ResponseWriter, o *services.Outcome) {
	switch o.Kind {
	case services.OutcomeSuccess, services.OutcomeAlreadyPaid:
		view := successView{
			Title:         o.Title,
			Message:       o.Message,
			TransactionID: o.Session.TransactionID,
			Amount:        o.Session.Amount,
		}
		if o.Session.WalletTxRef != nil {
			view.WalletTxRef = *o.Session.WalletTxRef
		}
		if o.Kind == services.OutcomeSuccess && o.Result != nil {
			view.WalletTxRef = o.Result.WalletTxRef
			view.NewBalance = &o.Result.NewBalance
		}
		h.render(w, http.StatusOK, h.pages.success, view)
	default:
		h.render(w, http.StatusOK, h.pages.failed, failedView{
			Title:         o.Title,
			Message:       o.Message,
			Reason:        o.Reason,
			TransactionID: o.Session.TransactionID,
		})
	}
}

func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, sqlrepo.ErrSessionNotFound) {
		h.renderError(w, http.StatusNotFound, "Transaction not found", "This payment link is invalid")
		return
	}
	h.log.Error("payment page failed", "path", r.URL.Path, "err", err)
	h.renderError(w, http.StatusInternalServerError, "Something went wrong", "Please try again later")
}

// @Summary Top up a wallet
// @Description Credits a user's wallet and records a TOPUP ledger entry
// @Tags payments
// @Accept json
// @Produce json
// @Param topup body models.TopupRequest true "Topup request"
// @Success 200 {object} models.TopupResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /wallet/topup [post]
func (h *Handler) topup(w http.ResponseWriter, r *http.Request) {
	var req models.TopupRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.svc.Payments.Topup(r.Context(), req.Phone, req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.server.PublicBaseURL != "" {
		return h.server.PublicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
