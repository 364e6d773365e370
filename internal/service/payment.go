package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/giftflow/giftflow/internal/config"
	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/internal/event"
	"github.com/giftflow/giftflow/internal/processor"
	"github.com/giftflow/giftflow/internal/repository"
	"github.com/giftflow/giftflow/internal/storage"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
)

// PaymentService orchestrates gift payments: intent creation against the
// processor and ledger recording once the sender's payment succeeds.
type PaymentService struct {
	events   repository.EventRepository
	payments repository.PaymentRepository
	proc     processor.Processor
	store    storage.Storage
	producer *event.Producer
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	events repository.EventRepository,
	payments repository.PaymentRepository,
	proc processor.Processor,
	store storage.Storage,
	producer *event.Producer,
	cfg *config.Config,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		events:   events,
		payments: payments,
		proc:     proc,
		store:    store,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// acceptanceWindow is how long after its date an event keeps accepting gifts.
func (s *PaymentService) acceptanceWindow() time.Duration {
	return time.Duration(s.cfg.AcceptanceWindowDays) * 24 * time.Hour
}

// IntentResult is returned to the gifting client so it can confirm the
// payment. Amounts echo what will be charged.
type IntentResult struct {
	IntentID     string  `json:"intent_id"`
	ClientSecret string  `json:"client_secret"`
	Amount       int64   `json:"amount"`
	GiftAmount   float64 `json:"gift_amount"`
	GiftFee      float64 `json:"gift_fee"`
}

// CreateIntentInput holds the parameters for starting a gift payment.
// IdempotencyKey identifies the logical attempt: clients reuse it when
// retrying so the processor does not mint a second intent.
type CreateIntentInput struct {
	EventID        int64
	GiftAmount     float64
	GiftFee        float64
	IdempotencyKey string
}

// CreateIntent checks that the event can accept gifts and creates a payment
// intent routing the full charge to the owner's payout account, with the
// fee kept by the platform. The three rejection cases are distinct: unknown
// event (404), owner without payout onboarding (422), expired event (410).
func (s *PaymentService) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error) {
	gift, fee := input.GiftAmount, input.GiftFee
	if gift <= 0 {
		return nil, apperrors.InvalidInput("gift amount must be greater than zero")
	}
	if fee < 0 {
		return nil, apperrors.InvalidInput("gift fee must not be negative")
	}

	// Without a client key each call is its own attempt.
	idemKey := input.IdempotencyKey
	if idemKey == "" {
		idemKey = uuid.New().String()
	}

	e, err := s.events.GetByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if e.Owner == nil || !e.Owner.Onboarded() {
		return nil, apperrors.UnprocessableEntity("OWNER_NOT_ONBOARDED", "the event owner has not completed payout onboarding")
	}
	if !e.AcceptingGifts(s.now(), s.acceptanceWindow()) {
		return nil, apperrors.Gone("EVENT_EXPIRED", "this event is no longer accepting gifts")
	}

	// Charge in minor units; the platform keeps the fee.
	total := int64(math.Round((gift + fee) * 100))
	feeMinor := int64(math.Round(fee * 100))

	intent, err := s.proc.CreateIntent(ctx, &processor.IntentInput{
		Amount:         total,
		ApplicationFee: feeMinor,
		Currency:       s.cfg.Currency,
		Destination:    *e.Owner.PayoutAccountID,
		Description:    fmt.Sprintf("%s: %s", s.cfg.PlatformDescription, e.Name),
		IdempotencyKey: idemKey,
		Metadata: map[string]string{
			"event_id": fmt.Sprintf("%d", e.ID),
		},
	})
	if err != nil {
		if perr, ok := processor.AsError(err); ok {
			return nil, apperrors.UnprocessableEntity("PAYMENT_REJECTED",
				fmt.Sprintf("payment processor rejected the intent: %s", perr.Message))
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	s.logger.InfoContext(ctx, "payment intent created",
		slog.Int64("event_id", e.ID),
		slog.String("intent_id", intent.ID),
		slog.Int64("amount", total),
		slog.Int64("application_fee", feeMinor),
	)

	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       total,
		GiftAmount:   gift,
		GiftFee:      fee,
	}, nil
}

// ConfirmInput holds the parameters for recording a completed gift.
type ConfirmInput struct {
	EventID     int64
	IntentID    string
	GiftAmount  float64
	GiftFee     float64
	SenderName  string
	Message     string
	SenderEmail string
	Country     string
}

// Confirm records a gift in the ledger after checking with the processor
// that the intent actually succeeded. The ledger insert and the event's
// running total update happen in one transaction.
func (s *PaymentService) Confirm(ctx context.Context, input ConfirmInput) (*domain.Payment, error) {
	if input.IntentID == "" {
		return nil, apperrors.InvalidInput("intent id is required")
	}
	if input.GiftAmount <= 0 {
		return nil, apperrors.InvalidInput("gift amount must be greater than zero")
	}
	if input.SenderName == "" {
		return nil, apperrors.InvalidInput("sender name is required")
	}

	intent, err := s.proc.RetrieveIntent(ctx, input.IntentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	if intent.Status != processor.IntentStatusSucceeded {
		return nil, apperrors.UnprocessableEntity("PAYMENT_NOT_COMPLETED",
			fmt.Sprintf("payment intent is %q, not succeeded", intent.Status))
	}

	// The ledger tracks whole gift dollars; the fee is kept separately.
	principal := int64(math.Floor(input.GiftAmount))
	payment := &domain.Payment{
		EventID:     input.EventID,
		GiftAmount:  principal,
		GiftFee:     input.GiftFee,
		SenderName:  input.SenderName,
		Message:     input.Message,
		SenderEmail: input.SenderEmail,
		Country:     input.Country,
		IntentID:    input.IntentID,
		CreatedAt:   s.now(),
	}

	if err := s.payments.Record(ctx, payment, principal); err != nil {
		return nil, err
	}

	if err := s.producer.PublishPaymentRecorded(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.recorded event",
			slog.Int64("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "gift recorded",
		slog.Int64("payment_id", payment.ID),
		slog.Int64("event_id", payment.EventID),
		slog.Int64("gift_amount", payment.GiftAmount),
		slog.String("intent_id", payment.IntentID),
	)

	return payment, nil
}

// ListForEvent returns a page of the event's gifts with the total count.
func (s *PaymentService) ListForEvent(ctx context.Context, eventID int64, limit, offset int) ([]domain.Payment, int, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, 0, err
	}
	return s.payments.ListByEvent(ctx, eventID, limit, offset)
}

// GiftDetails returns a single gift with its event, the event image served
// through a signed URL.
func (s *PaymentService) GiftDetails(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Event != nil && payment.Event.ImageKey != "" {
		url, err := s.store.SignedURL(ctx, payment.Event.ImageKey, time.Duration(s.cfg.SignedURLTTLMin)*time.Minute)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to sign event image URL",
				slog.String("key", payment.Event.ImageKey),
				slog.String("error", err.Error()),
			)
		} else {
			payment.Event.ImageURL = url
		}
	}
	return payment, nil
}

// Summary aggregates gifts received across the user's events and gifts
// sent under their email address.
func (s *PaymentService) Summary(ctx context.Context, userID int64, email string) (*domain.PaymentSummary, error) {
	summary, err := s.payments.SummaryForUser(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("aggregate payment summary: %w", err)
	}
	return summary, nil
}
