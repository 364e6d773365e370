package processor

import (
	"context"
	"time"
)

// AccountInput holds the profile used to create or update a payout account.
// A minimal input (email + country only) is accepted by implementations and
// produces a reduced-fidelity account the user completes later.
type AccountInput struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	DateOfBirth time.Time
	Line1       string
	Line2       string
	City        string
	State       string
	PostalCode  string
	Country     string
}

// Account is the processor's view of a payout account, including the
// outstanding verification requirements.
type Account struct {
	ID             string
	PayoutsEnabled bool
	DisabledReason string
	CurrentlyDue   []string
	EventuallyDue  []string
	PastDue        []string
}

// BankAccountInput holds the parameters for attaching an external bank
// account to a payout account.
type BankAccountInput struct {
	AccountID     string
	AccountNumber string
	RoutingNumber string
	HolderName    string
	Country       string
	Currency      string
}

// BankAccount is an attached external account.
type BankAccount struct {
	ID            string
	Last4         string
	RoutingNumber string
}

// IntentInput holds the parameters for creating a payment intent. Amounts
// are in minor currency units. The full charge lands on the destination
// account; the platform keeps ApplicationFee.
type IntentInput struct {
	Amount         int64
	ApplicationFee int64
	Currency       string
	Destination    string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

// Intent is the processor's payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
}

// IntentStatusSucceeded is the terminal success status of an intent.
const IntentStatusSucceeded = "succeeded"

// Processor defines the boundary to the external payment processor.
// Implementations must not leak processor SDK types to callers.
type Processor interface {
	// Name returns the processor name (e.g., "mock", "stripe").
	Name() string

	// CreateAccount creates a payout account and returns its ID.
	CreateAccount(ctx context.Context, input *AccountInput) (string, error)

	// UpdateAccount pushes profile changes to an existing account.
	UpdateAccount(ctx context.Context, accountID string, input *AccountInput) error

	// RetrieveAccount fetches the account with its requirement state.
	RetrieveAccount(ctx context.Context, accountID string) (*Account, error)

	// DeleteAccount removes the payout account.
	DeleteAccount(ctx context.Context, accountID string) error

	// AttachBankAccount attaches an external bank account.
	AttachBankAccount(ctx context.Context, input *BankAccountInput) (*BankAccount, error)

	// ListBankAccounts lists the external accounts attached to the account.
	ListBankAccounts(ctx context.Context, accountID string) ([]BankAccount, error)

	// DeleteBankAccount detaches an external bank account.
	DeleteBankAccount(ctx context.Context, accountID, bankAccountID string) error

	// UploadFile uploads an identity document and returns the file ID.
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)

	// AttachVerificationDocuments links uploaded files to the account's
	// identity verification. Empty IDs leave the corresponding slot untouched.
	AttachVerificationDocuments(ctx context.Context, accountID, frontID, backID, additionalID string) error

	// CreateIntent creates a payment intent with a destination transfer.
	CreateIntent(ctx context.Context, input *IntentInput) (*Intent, error)

	// RetrieveIntent fetches a payment intent by ID.
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)

	// VerifyWebhook checks the payload signature and normalizes the event.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
