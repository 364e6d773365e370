package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/pkg/database"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, date_of_birth,
		address_line1, address_line2, city, state, postal_code,
		access_token, refresh_token, verified, kyc_status,
		payout_account_id, routing_number, account_number, account_last4,
		doc_front_key, doc_back_key, doc_additional_key, verification_details,
		created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills in the generated ID.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	details, err := marshalDetails(u.VerificationDetails)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, date_of_birth,
			address_line1, address_line2, city, state, postal_code,
			access_token, refresh_token, verified, kyc_status,
			payout_account_id, routing_number, account_number, account_last4,
			doc_front_key, doc_back_key, doc_additional_key, verification_details,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING id`

	err = r.db.QueryRow(ctx, query,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Phone,
		u.DateOfBirth,
		u.Address.Line1,
		u.Address.Line2,
		u.Address.City,
		u.Address.State,
		u.Address.PostalCode,
		u.AccessToken,
		u.RefreshToken,
		u.Verified,
		string(u.KYCStatus),
		u.PayoutAccountID,
		u.RoutingNumber,
		u.AccountNumber,
		u.AccountLast4,
		u.Documents.FrontKey,
		u.Documents.BackKey,
		u.Documents.AdditionalKey,
		details,
		u.CreatedAt,
		u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

// GetByPayoutAccountID retrieves the user linked to the given processor account.
func (r *UserRepository) GetByPayoutAccountID(ctx context.Context, accountID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE payout_account_id = $1`
	return r.scanUser(ctx, query, accountID)
}

// Update modifies an existing user in the database.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	details, err := marshalDetails(u.VerificationDetails)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET email = $1, password_hash = $2, first_name = $3, last_name = $4, phone = $5,
		    date_of_birth = $6, address_line1 = $7, address_line2 = $8, city = $9,
		    state = $10, postal_code = $11, access_token = $12, refresh_token = $13,
		    verified = $14, kyc_status = $15, payout_account_id = $16,
		    routing_number = $17, account_number = $18, account_last4 = $19,
		    doc_front_key = $20, doc_back_key = $21, doc_additional_key = $22,
		    verification_details = $23, updated_at = $24
		WHERE id = $25`

	ct, err := r.db.Exec(ctx, query,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Phone,
		u.DateOfBirth,
		u.Address.Line1,
		u.Address.Line2,
		u.Address.City,
		u.Address.State,
		u.Address.PostalCode,
		u.AccessToken,
		u.RefreshToken,
		u.Verified,
		string(u.KYCStatus),
		u.PayoutAccountID,
		u.RoutingNumber,
		u.AccountNumber,
		u.AccountLast4,
		u.Documents.FrontKey,
		u.Documents.BackKey,
		u.Documents.AdditionalKey,
		details,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("%d", u.ID))
	}

	return nil
}

// Delete removes a user from the database by their ID.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("%d", id))
	}

	return nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var (
		u       domain.User
		status  string
		details []byte
	)

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.DateOfBirth,
		&u.Address.Line1,
		&u.Address.Line2,
		&u.Address.City,
		&u.Address.State,
		&u.Address.PostalCode,
		&u.AccessToken,
		&u.RefreshToken,
		&u.Verified,
		&status,
		&u.PayoutAccountID,
		&u.RoutingNumber,
		&u.AccountNumber,
		&u.AccountLast4,
		&u.Documents.FrontKey,
		&u.Documents.BackKey,
		&u.Documents.AdditionalKey,
		&details,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.KYCStatus = domain.KYCStatus(status)
	if len(details) > 0 {
		u.VerificationDetails = &domain.VerificationDetails{}
		if err := json.Unmarshal(details, u.VerificationDetails); err != nil {
			return nil, fmt.Errorf("unmarshal verification details: %w", err)
		}
	}

	return &u, nil
}

// marshalDetails serializes the requirement snapshot for the JSONB column.
// A nil snapshot is stored as NULL.
func marshalDetails(d *domain.VerificationDetails) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal verification details: %w", err)
	}
	return b, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
