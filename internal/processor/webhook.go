package processor

// WebhookKind discriminates normalized webhook events.
type WebhookKind string

const (
	// WebhookAccountUpdated carries a fresh requirement snapshot.
	WebhookAccountUpdated WebhookKind = "account.updated"
	// WebhookBankAccountAdded fires when an external account is attached.
	WebhookBankAccountAdded WebhookKind = "bank_account.added"
	// WebhookBankAccountUpdated fires when an external account changes.
	WebhookBankAccountUpdated WebhookKind = "bank_account.updated"
	// WebhookBankAccountDeleted fires when an external account is detached.
	WebhookBankAccountDeleted WebhookKind = "bank_account.deleted"
	// WebhookAccountDeleted fires when the payout account itself is removed.
	WebhookAccountDeleted WebhookKind = "account.deleted"
	// WebhookIgnored is any verified event the platform does not act on.
	WebhookIgnored WebhookKind = "ignored"
)

// WebhookEvent is the normalized, signature-verified webhook payload.
// Exactly the fields relevant to Kind are populated: Account for
// account.updated, BankAccount for the bank_account kinds. AccountID is
// always set for non-ignored events.
type WebhookEvent struct {
	Kind        WebhookKind
	AccountID   string
	Account     *Account
	BankAccount *BankAccount
}
