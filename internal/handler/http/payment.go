package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giftflow/giftflow/internal/service"
	"github.com/giftflow/giftflow/pkg/httputil"
	"github.com/giftflow/giftflow/pkg/middleware"
	"github.com/giftflow/giftflow/pkg/pagination"
	"github.com/giftflow/giftflow/pkg/validator"
)

// PaymentHandler handles payment intent creation, gift recording, and
// payment queries.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// --- Request DTOs ---

// CreateIntentRequest is the JSON request body for starting a gift payment.
// Amounts are in dollars; the fee is on top of the gift.
type CreateIntentRequest struct {
	GiftAmount float64 `json:"gift_amount" validate:"required,gt=0"`
	GiftFee    float64 `json:"gift_fee" validate:"gte=0"`
	// IdempotencyKey is chosen by the client and reused across retries of
	// the same gift attempt.
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=64"`
}

// ConfirmPaymentRequest is the JSON request body for recording a completed
// gift.
type ConfirmPaymentRequest struct {
	EventID     int64   `json:"event_id" validate:"required,gt=0"`
	IntentID    string  `json:"intent_id" validate:"required"`
	GiftAmount  float64 `json:"gift_amount" validate:"required,gt=0"`
	GiftFee     float64 `json:"gift_fee" validate:"gte=0"`
	SenderName  string  `json:"sender_name" validate:"required,min=1,max=200"`
	Message     string  `json:"message" validate:"max=2000"`
	SenderEmail string  `json:"sender_email" validate:"required,email"`
	Country     string  `json:"country" validate:"omitempty,len=2"`
}

// --- Handlers ---

// CreateIntent handles POST /api/v1/events/{id}/payment-intent. This is the
// public gifting entry point; senders do not authenticate.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CreateIntentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	intent, err := h.payments.CreateIntent(r.Context(), service.CreateIntentInput{
		EventID:        eventID,
		GiftAmount:     req.GiftAmount,
		GiftFee:        req.GiftFee,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: intent})
}

// Confirm handles POST /api/v1/payments. It records a gift whose payment
// intent has succeeded at the processor.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payment, err := h.payments.Confirm(r.Context(), service.ConfirmInput{
		EventID:     req.EventID,
		IntentID:    req.IntentID,
		GiftAmount:  req.GiftAmount,
		GiftFee:     req.GiftFee,
		SenderName:  req.SenderName,
		Message:     req.Message,
		SenderEmail: req.SenderEmail,
		Country:     req.Country,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: payment})
}

// Summary handles GET /api/v1/payments/summary (auth required). It reports
// gifts received across the caller's events and gifts they have sent.
func (h *PaymentHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	email := middleware.EmailFromContext(r.Context())

	summary, err := h.payments.Summary(r.Context(), userID, email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// GiftDetails handles GET /api/v1/payments/{id}/gift-details. It returns a
// recorded gift together with its event, including a signed image URL.
func (h *PaymentHandler) GiftDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payment, err := h.payments.GiftDetails(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}

// ListForEvent handles GET /api/v1/events/{id}/payments with page/per_page
// query parameters.
func (h *PaymentHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	params := pagination.FromRequest(r)

	payments, total, err := h.payments.ListForEvent(r.Context(), eventID, params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(payments, total, params))
}
