package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/pkg/database"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
)

const paymentColumns = `id, event_id, gift_amount, gift_fee, sender_name, message, sender_email, country, intent_id, created_at`

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	db database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(db database.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Record inserts the ledger row and increments the event's collected amount
// in one transaction. The increment happens in SQL rather than read-modify-
// write in Go, so concurrent recordings against the same event never lose
// updates.
func (r *PaymentRepository) Record(ctx context.Context, p *domain.Payment, principal int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := `
		INSERT INTO payments (event_id, gift_amount, gift_fee, sender_name, message, sender_email, country, intent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err = tx.QueryRow(ctx, insert,
		p.EventID,
		p.GiftAmount,
		p.GiftFee,
		p.SenderName,
		p.Message,
		p.SenderEmail,
		p.Country,
		p.IntentID,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	ct, err := tx.Exec(ctx,
		`UPDATE events SET amount_collected = amount_collected + $1, updated_at = NOW() WHERE id = $2`,
		principal, p.EventID,
	)
	if err != nil {
		return fmt.Errorf("increment amount collected: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("event", fmt.Sprintf("%d", p.EventID))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a payment with its event joined.
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	query := `
		SELECT p.id, p.event_id, p.gift_amount, p.gift_fee, p.sender_name, p.message,
		       p.sender_email, p.country, p.intent_id, p.created_at,
		       e.id, e.owner_id, e.name, e.description, e.date, e.image_key, e.slug,
		       e.amount_collected, e.created_at, e.updated_at
		FROM payments p
		JOIN events e ON e.id = p.event_id
		WHERE p.id = $1`

	var (
		p domain.Payment
		e domain.Event
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.EventID,
		&p.GiftAmount,
		&p.GiftFee,
		&p.SenderName,
		&p.Message,
		&p.SenderEmail,
		&p.Country,
		&p.IntentID,
		&p.CreatedAt,
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
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	p.Event = &e
	return &p, nil
}

// ListByEvent returns a page of payments for an event, newest first, with
// the total count.
func (r *PaymentRepository) ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]domain.Payment, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE event_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, eventID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID,
			&p.EventID,
			&p.GiftAmount,
			&p.GiftFee,
			&p.SenderName,
			&p.Message,
			&p.SenderEmail,
			&p.Country,
			&p.IntentID,
			&p.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payment rows: %w", err)
	}

	if payments == nil {
		payments = []domain.Payment{}
	}

	return payments, total, nil
}

// SummaryForUser aggregates gifts received across the user's events and
// gifts sent under the given email.
func (r *PaymentRepository) SummaryForUser(ctx context.Context, userID int64, email string) (*domain.PaymentSummary, error) {
	var s domain.PaymentSummary

	received := `
		SELECT COALESCE(SUM(p.gift_amount), 0), COUNT(*)
		FROM payments p
		JOIN events e ON e.id = p.event_id
		WHERE e.owner_id = $1`
	if err := r.db.QueryRow(ctx, received, userID).Scan(&s.ReceivedTotal, &s.ReceivedCount); err != nil {
		return nil, fmt.Errorf("sum received payments: %w", err)
	}

	sent := `
		SELECT COALESCE(SUM(gift_amount), 0), COUNT(*)
		FROM payments
		WHERE sender_email = $1`
	if err := r.db.QueryRow(ctx, sent, email).Scan(&s.SentTotal, &s.SentCount); err != nil {
		return nil, fmt.Errorf("sum sent payments: %w", err)
	}

	return &s, nil
}
