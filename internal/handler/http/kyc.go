package http

import (
	"log/slog"
	"net/http"

	"github.com/giftflow/giftflow/internal/service"
	"github.com/giftflow/giftflow/pkg/httputil"
	"github.com/giftflow/giftflow/pkg/middleware"
)

// KYCHandler exposes the payout verification status endpoint.
type KYCHandler struct {
	kyc    *service.KYCService
	logger *slog.Logger
}

// NewKYCHandler creates a new KYC HTTP handler.
func NewKYCHandler(kyc *service.KYCService, logger *slog.Logger) *KYCHandler {
	return &KYCHandler{kyc: kyc, logger: logger}
}

// Status handles GET /api/v1/kyc/status (auth required). It polls the
// processor for the live account state and persists any change.
func (h *KYCHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	status, err := h.kyc.CheckStatus(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: status})
}
