package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/pkg/database"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
)

const eventColumns = `id, owner_id, name, description, date, image_key, slug, amount_collected, created_at, updated_at`

// EventRepository implements repository.EventRepository using PostgreSQL.
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository creates a new PostgreSQL-backed event repository.
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and fills in the generated ID.
func (r *EventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (owner_id, name, description, date, image_key, slug, amount_collected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		e.OwnerID,
		e.Name,
		e.Description,
		e.Date,
		e.ImageKey,
		e.Slug,
		e.AmountCollected,
		e.CreatedAt,
		e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// GetByID retrieves an event with its owner joined.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `
		SELECT e.id, e.owner_id, e.name, e.description, e.date, e.image_key, e.slug,
		       e.amount_collected, e.created_at, e.updated_at,
		       u.id, u.email, u.first_name, u.last_name, u.verified, u.kyc_status, u.payout_account_id
		FROM events e
		JOIN users u ON u.id = e.owner_id
		WHERE e.id = $1`

	var (
		e      domain.Event
		o      domain.User
		status string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.OwnerID,
		&e.Name,
		&e.Description,
		&e.Date,
		&e.ImageKey,
		&e.Slug,
		&e.AmountCollected,
		&e.CreatedAt,
		&e.UpdatedAt,
		&o.ID,
		&o.Email,
		&o.FirstName,
		&o.LastName,
		&o.Verified,
		&status,
		&o.PayoutAccountID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}

	o.KYCStatus = domain.KYCStatus(status)
	e.Owner = &o
	return &e, nil
}

// List returns a page of events ordered newest first, with the total count.
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]domain.Event, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// ListByOwner returns all events owned by the given user, newest first.
func (r *EventRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events by owner: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// Update modifies an existing event. Ownership and amount_collected are
// deliberately not part of the SET list; the collected total only moves
// through PaymentRepository.Record.
func (r *EventRepository) Update(ctx context.Context, e *domain.Event) error {
	e.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE events
		SET name = $1, description = $2, date = $3, image_key = $4, slug = $5, updated_at = $6
		WHERE id = $7 AND owner_id = $8`

	ct, err := r.db.Exec(ctx, query,
		e.Name,
		e.Description,
		e.Date,
		e.ImageKey,
		e.Slug,
		e.UpdatedAt,
		e.ID,
		e.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("event", fmt.Sprintf("%d", e.ID))
	}

	return nil
}

// Delete removes an event owned by the given user.
func (r *EventRepository) Delete(ctx context.Context, id, ownerID int64) error {
	query := `DELETE FROM events WHERE id = $1 AND owner_id = $2`

	ct, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("event", fmt.Sprintf("%d", id))
	}

	return nil
}

// DeleteByOwner removes all events owned by the given user. Payments
// cascade with the events via the foreign key.
func (r *EventRepository) DeleteByOwner(ctx context.Context, ownerID int64) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM events WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete events by owner: %w", err)
	}
	return ct.RowsAffected(), nil
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID,
			&e.OwnerID,
			&e.Name,
			&e.Description,
			&e.Date,
			&e.ImageKey,
			&e.Slug,
			&e.AmountCollected,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	if events == nil {
		events = []domain.Event{}
	}

	return events, nil
}
