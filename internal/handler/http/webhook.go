package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/giftflow/giftflow/internal/processor"
	"github.com/giftflow/giftflow/internal/service"
	"github.com/giftflow/giftflow/pkg/httputil"
)

// maxWebhookBytes bounds the webhook payload size.
const maxWebhookBytes = 1 << 20

// WebhookHandler receives payment processor webhooks, verifies their
// signatures, and dispatches them to the KYC service.
type WebhookHandler struct {
	proc   processor.Processor
	kyc    *service.KYCService
	logger *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(proc processor.Processor, kyc *service.KYCService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{proc: proc, kyc: kyc, logger: logger}
}

// Receive handles POST /api/v1/webhooks/processor. Deliveries with a bad
// signature are rejected with 400; everything else is acknowledged with 200
// so the processor does not retry events we have already absorbed.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "read webhook payload: " + err.Error()},
		})
		return
	}

	event, err := h.proc.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed",
			slog.String("error", err.Error()),
		)
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_SIGNATURE", Message: "webhook signature verification failed"},
		})
		return
	}

	if err := h.kyc.HandleWebhook(r.Context(), event); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]bool{"received": true},
	})
}
