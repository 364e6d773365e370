package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/giftflow/giftflow/internal/domain"
	pkgkafka "github.com/giftflow/giftflow/pkg/kafka"
)

// Kafka topics for platform domain events.
const (
	TopicUserRegistered      = "giftflow.user.registered"
	TopicUserVerified        = "giftflow.user.verified"
	TopicUserKYCStatusChange = "giftflow.user.kyc_status_changed"
	TopicEventCreated        = "giftflow.event.created"
	TopicPaymentRecorded     = "giftflow.payment.recorded"
)

// Aggregate type constants.
const (
	AggregateTypeUser    = "user"
	AggregateTypeEvent   = "event"
	AggregateTypePayment = "payment"
)

// Source identifier for events originating from this service.
const Source = "giftflow"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	KYCStatus string `json:"kyc_status"`
}

// UserVerifiedData is the payload for a user.verified event.
type UserVerifiedData struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// KYCStatusChangedData is the payload for a user.kyc_status_changed event.
type KYCStatusChangedData struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// EventCreatedData is the payload for an event.created event.
type EventCreatedData struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Date    string `json:"date"`
}

// PaymentRecordedData is the payload for a payment.recorded event.
type PaymentRecordedData struct {
	ID         int64  `json:"id"`
	EventID    int64  `json:"event_id"`
	GiftAmount int64  `json:"gift_amount"`
	SenderName string `json:"sender_name"`
	IntentID   string `json:"intent_id"`
}

// Producer publishes platform domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateType string, aggregateID int64, data any) error {
	event, err := pkgkafka.NewEvent(topic, strconv.FormatInt(aggregateID, 10), aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.Int64("aggregate_id", aggregateID),
	)
	return nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, AggregateTypeUser, user.ID, UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		KYCStatus: string(user.KYCStatus),
	})
}

// PublishUserVerified publishes a user.verified event.
func (p *Producer) PublishUserVerified(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserVerified, AggregateTypeUser, user.ID, UserVerifiedData{
		ID:    user.ID,
		Email: user.Email,
	})
}

// PublishKYCStatusChanged publishes a user.kyc_status_changed event.
func (p *Producer) PublishKYCStatusChanged(ctx context.Context, user *domain.User, previous domain.KYCStatus) error {
	return p.publish(ctx, TopicUserKYCStatusChange, AggregateTypeUser, user.ID, KYCStatusChangedData{
		ID:             user.ID,
		Email:          user.Email,
		PreviousStatus: string(previous),
		Status:         string(user.KYCStatus),
	})
}

// PublishEventCreated publishes an event.created event.
func (p *Producer) PublishEventCreated(ctx context.Context, e *domain.Event) error {
	return p.publish(ctx, TopicEventCreated, AggregateTypeEvent, e.ID, EventCreatedData{
		ID:      e.ID,
		OwnerID: e.OwnerID,
		Name:    e.Name,
		Slug:    e.Slug,
		Date:    e.Date.Format("2006-01-02"),
	})
}

// PublishPaymentRecorded publishes a payment.recorded event.
func (p *Producer) PublishPaymentRecorded(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, TopicPaymentRecorded, AggregateTypePayment, payment.ID, PaymentRecordedData{
		ID:         payment.ID,
		EventID:    payment.EventID,
		GiftAmount: payment.GiftAmount,
		SenderName: payment.SenderName,
		IntentID:   payment.IntentID,
	})
}
