package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/giftflow/giftflow/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, user_id, trace_id, and span_id. Handlers and services pull
// it back out with logger.FromContext(ctx), so a single gift payment can be
// followed from the HTTP edge through the processor calls.
//
// Mount after RequestLogging (correlation_id) and Tracing (span context). The
// user id comes exclusively from the Auth middleware; request headers are
// never trusted for log identity.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := UserIDFromContext(ctx); userID != 0 {
				ctx = logger.WithUserID(ctx, strconv.FormatInt(userID, 10))
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
