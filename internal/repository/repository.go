package repository

import (
	"context"

	"github.com/giftflow/giftflow/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user and fills in the generated ID.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByPayoutAccountID retrieves the user linked to the given
	// processor account.
	GetByPayoutAccountID(ctx context.Context, accountID string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id int64) error
}

// EventRepository defines the interface for event persistence operations.
type EventRepository interface {
	// Create inserts a new event and fills in the generated ID.
	Create(ctx context.Context, event *domain.Event) error

	// GetByID retrieves an event with its owner joined.
	GetByID(ctx context.Context, id int64) (*domain.Event, error)

	// List returns a page of events ordered newest first, with the total count.
	List(ctx context.Context, limit, offset int) ([]domain.Event, int, error)

	// ListByOwner returns all events owned by the given user.
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Event, error)

	// Update modifies an existing event in the store.
	Update(ctx context.Context, event *domain.Event) error

	// Delete removes an event owned by the given user. Returns NotFound
	// when the event does not exist or belongs to someone else.
	Delete(ctx context.Context, id, ownerID int64) error

	// DeleteByOwner removes all events owned by the given user, returning
	// the number of deleted events. Ledger rows cascade with the events.
	DeleteByOwner(ctx context.Context, ownerID int64) (int64, error)
}

// PaymentRepository defines the interface for the gift ledger.
type PaymentRepository interface {
	// Record inserts a ledger row and increments the event's collected
	// amount by the given principal in a single transaction.
	Record(ctx context.Context, payment *domain.Payment, principal int64) error

	// GetByID retrieves a payment with its event joined.
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)

	// ListByEvent returns a page of payments for an event with the total count.
	ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]domain.Payment, int, error)

	// SummaryForUser aggregates gifts received across the user's events and
	// gifts sent under the given email.
	SummaryForUser(ctx context.Context, userID int64, email string) (*domain.PaymentSummary, error)
}
