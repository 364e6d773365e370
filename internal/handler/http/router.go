package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giftflow/giftflow/internal/auth"
	"github.com/giftflow/giftflow/internal/processor"
	"github.com/giftflow/giftflow/internal/service"
	"github.com/giftflow/giftflow/pkg/health"
	"github.com/giftflow/giftflow/pkg/middleware"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Onboarding *service.OnboardingService
	KYC        *service.KYCService
	Events     *service.EventService
	Payments   *service.PaymentService
	Processor  processor.Processor
	JWT        *auth.JWTManager
	Health     *health.Handler
	Logger     *slog.Logger
	CORS       CORSConfig

	// PprofAllowedCIDRs gates the /debug/pprof endpoints; empty disables them.
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all giftflow routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(deps.CORS))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("giftflow"))
	r.Use(middleware.Tracing("giftflow"))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(deps.PprofAllowedCIDRs) > 0 {
		middleware.RegisterPprof(r, deps.PprofAllowedCIDRs, deps.Logger)
	}

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := deps.JWT.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
		}, nil
	}

	authHandler := NewAuthHandler(deps.Onboarding, deps.Logger)
	kycHandler := NewKYCHandler(deps.KYC, deps.Logger)
	webhookHandler := NewWebhookHandler(deps.Processor, deps.KYC, deps.Logger)
	eventHandler := NewEventHandler(deps.Events, deps.Logger)
	paymentHandler := NewPaymentHandler(deps.Payments, deps.Logger)

	// Auth endpoints (public). Sign-up and profile updates are multipart,
	// so the JSON content-type check applies only to the JSON routes.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/sign-up", authHandler.SignUp)
		r.Get("/sign-up/confirm", authHandler.Confirm)
		r.Get("/refresh", authHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
		})

		// Authenticated account management.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.With(ContentTypeJSON).Post("/update-password", authHandler.UpdatePassword)
			r.Post("/update-profile", authHandler.UpdateProfile)
			r.Delete("/account", authHandler.DeleteAccount)
		})
	})

	// Processor webhooks carry their own signature; no auth middleware.
	r.Post("/api/v1/webhooks/processor", webhookHandler.Receive)

	// Payout verification status.
	r.With(middleware.Auth(tokenValidator)).Get("/api/v1/kyc/status", kycHandler.Status)

	// Events. Reads and the gifting entry points are public.
	r.Route("/api/v1/events", func(r chi.Router) {
		r.Get("/", eventHandler.List)
		r.Get("/{id}", eventHandler.Get)
		r.With(ContentTypeJSON).Post("/{id}/payment-intent", paymentHandler.CreateIntent)
		r.Get("/{id}/payments", paymentHandler.ListForEvent)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Post("/", eventHandler.Create)
			r.Get("/mine", eventHandler.ListMine)
			r.Patch("/{id}", eventHandler.Update)
			r.Delete("/{id}", eventHandler.Delete)
		})
	})

	// Payments.
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.With(ContentTypeJSON).Post("/", paymentHandler.Confirm)
		r.Get("/{id}/gift-details", paymentHandler.GiftDetails)
		r.With(middleware.Auth(tokenValidator)).Get("/summary", paymentHandler.Summary)
	})

	return r
}
