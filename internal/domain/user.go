package domain

import (
	"time"
)

// KYCStatus is the onboarding state of a user's payout account.
type KYCStatus string

const (
	// KYCStatusUnverified means no payout account is linked yet.
	KYCStatusUnverified KYCStatus = "unverified"
	// KYCStatusPending means the processor still requires information
	// before payouts can be enabled.
	KYCStatusPending KYCStatus = "pending"
	// KYCStatusVerified means payouts are enabled and nothing is due.
	KYCStatusVerified KYCStatus = "verified"
)

// Address is an Australian postal address attached to a user.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// VerificationDocuments holds the object-storage keys of the identity
// documents a user uploaded during sign-up. Additional is optional.
type VerificationDocuments struct {
	FrontKey      string `json:"front_key,omitempty"`
	BackKey       string `json:"back_key,omitempty"`
	AdditionalKey string `json:"additional_key,omitempty"`
}

// VerificationDetails is a snapshot of the processor's outstanding
// requirements for a payout account, stored verbatim for display.
type VerificationDetails struct {
	CurrentlyDue   []string `json:"currently_due,omitempty"`
	EventuallyDue  []string `json:"eventually_due,omitempty"`
	PastDue        []string `json:"past_due,omitempty"`
	DisabledReason string   `json:"disabled_reason,omitempty"`
	PayoutsEnabled bool     `json:"payouts_enabled"`
}

// User represents a registered gift recipient.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone,omitempty"`
	DateOfBirth  time.Time `json:"date_of_birth"`
	Address      Address   `json:"address"`

	// Convenience cache of the last issued token pair. The JWTs themselves
	// are the source of truth; these exist so clients can be re-issued
	// tokens on verification and login flows.
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// Verified is nil until the sign-up confirmation link is followed.
	Verified  *bool     `json:"verified"`
	KYCStatus KYCStatus `json:"kyc_status"`

	// Payout linkage. AccountNumber is the full number the user supplied
	// and never leaves the API; AccountLast4 is the processor-reported
	// suffix shown back to clients.
	PayoutAccountID *string `json:"payout_account_id,omitempty"`
	RoutingNumber   string  `json:"routing_number,omitempty"`
	AccountNumber   string  `json:"-"`
	AccountLast4    string  `json:"account_last4,omitempty"`

	Documents           VerificationDocuments `json:"documents,omitempty"`
	VerificationDetails *VerificationDetails  `json:"verification_details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsVerified reports whether the user has confirmed their email address.
func (u *User) IsVerified() bool {
	return u.Verified != nil && *u.Verified
}

// Onboarded reports whether the user has a linked payout account and can
// therefore receive gift transfers.
func (u *User) Onboarded() bool {
	return u.PayoutAccountID != nil && *u.PayoutAccountID != ""
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
