// Package mock provides an in-memory, deterministic payment processor used
// in development and tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/giftflow/giftflow/internal/processor"
)

// Processor is a mock processor. Every operation succeeds unless a failure
// is injected via the Fail* fields. All calls are counted so tests can
// assert that no external call happened.
type Processor struct {
	mu sync.Mutex

	accounts     map[string]*processor.Account
	banks        map[string][]processor.BankAccount
	intents      map[string]*processor.Intent
	intentsByKey map[string]*processor.Intent
	seq          int

	// IntentStatus is the status assigned to newly created intents.
	// Defaults to "requires_payment_method"; tests flip it to "succeeded".
	IntentStatus string

	// Injectable failures.
	FailCreateAccount error
	FailAttachBank    error
	FailUploadFile    error
	FailCreateIntent  error

	// CreateAccountFailures makes the first N CreateAccount calls fail
	// with FailCreateAccount before succeeding, for retry tests.
	CreateAccountFailures int

	// Calls counts invocations per operation name.
	Calls map[string]int
}

// New creates a new mock processor.
func New() *Processor {
	return &Processor{
		accounts:     make(map[string]*processor.Account),
		banks:        make(map[string][]processor.BankAccount),
		intents:      make(map[string]*processor.Intent),
		intentsByKey: make(map[string]*processor.Intent),
		IntentStatus: "requires_payment_method",
		Calls:        make(map[string]int),
	}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "mock"
}

func (p *Processor) count(op string) {
	p.Calls[op]++
}

// CallCount returns how many times the named operation ran.
func (p *Processor) CallCount(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls[op]
}

// TotalCalls returns the number of operations run across all names.
func (p *Processor) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		n += c
	}
	return n
}

// CreateAccount creates an in-memory payout account.
func (p *Processor) CreateAccount(_ context.Context, input *processor.AccountInput) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("CreateAccount")

	if p.CreateAccountFailures > 0 {
		p.CreateAccountFailures--
		if p.FailCreateAccount != nil {
			return "", p.FailCreateAccount
		}
		return "", &processor.Error{Code: "lock_timeout", Type: "api_error", Message: "try again"}
	}
	if p.FailCreateAccount != nil {
		return "", p.FailCreateAccount
	}

	p.seq++
	id := fmt.Sprintf("acct_mock_%d", p.seq)
	p.accounts[id] = &processor.Account{
		ID:           id,
		CurrentlyDue: []string{"individual.verification.document"},
	}
	_ = input
	return id, nil
}

// UpdateAccount updates an in-memory account. Missing accounts error.
func (p *Processor) UpdateAccount(_ context.Context, accountID string, _ *processor.AccountInput) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("UpdateAccount")

	if _, ok := p.accounts[accountID]; !ok {
		return &processor.Error{Code: "account_invalid", Type: "invalid_request_error", Message: "no such account"}
	}
	return nil
}

// RetrieveAccount returns the stored account state.
func (p *Processor) RetrieveAccount(_ context.Context, accountID string) (*processor.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("RetrieveAccount")

	acct, ok := p.accounts[accountID]
	if !ok {
		return nil, &processor.Error{Code: "account_invalid", Type: "invalid_request_error", Message: "no such account"}
	}
	cp := *acct
	return &cp, nil
}

// SetAccountState overrides the stored state for an account, so tests can
// simulate the processor finishing (or failing) verification.
func (p *Processor) SetAccountState(accountID string, acct processor.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct.ID = accountID
	p.accounts[accountID] = &acct
}

// DeleteAccount removes an in-memory account.
func (p *Processor) DeleteAccount(_ context.Context, accountID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("DeleteAccount")

	delete(p.accounts, accountID)
	delete(p.banks, accountID)
	return nil
}

// AttachBankAccount attaches a bank account to an in-memory account.
func (p *Processor) AttachBankAccount(_ context.Context, input *processor.BankAccountInput) (*processor.BankAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("AttachBankAccount")

	if p.FailAttachBank != nil {
		return nil, p.FailAttachBank
	}

	p.seq++
	last4 := input.AccountNumber
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	ba := processor.BankAccount{
		ID:            fmt.Sprintf("ba_mock_%d", p.seq),
		Last4:         last4,
		RoutingNumber: input.RoutingNumber,
	}
	p.banks[input.AccountID] = append(p.banks[input.AccountID], ba)
	return &ba, nil
}

// ListBankAccounts lists the attached bank accounts.
func (p *Processor) ListBankAccounts(_ context.Context, accountID string) ([]processor.BankAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("ListBankAccounts")

	out := make([]processor.BankAccount, len(p.banks[accountID]))
	copy(out, p.banks[accountID])
	return out, nil
}

// DeleteBankAccount detaches a bank account.
func (p *Processor) DeleteBankAccount(_ context.Context, accountID, bankAccountID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("DeleteBankAccount")

	list := p.banks[accountID]
	for i, ba := range list {
		if ba.ID == bankAccountID {
			p.banks[accountID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return &processor.Error{Code: "resource_missing", Type: "invalid_request_error", Message: "no such bank account"}
}

// UploadFile returns a deterministic file ID.
func (p *Processor) UploadFile(_ context.Context, filename string, _ []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("UploadFile")

	if p.FailUploadFile != nil {
		return "", p.FailUploadFile
	}

	p.seq++
	return fmt.Sprintf("file_mock_%d_%s", p.seq, filename), nil
}

// AttachVerificationDocuments records the attachment. Missing accounts error.
func (p *Processor) AttachVerificationDocuments(_ context.Context, accountID, _, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("AttachVerificationDocuments")

	if _, ok := p.accounts[accountID]; !ok {
		return &processor.Error{Code: "account_invalid", Type: "invalid_request_error", Message: "no such account"}
	}
	return nil
}

// CreateIntent creates an in-memory intent with the configured status.
func (p *Processor) CreateIntent(_ context.Context, input *processor.IntentInput) (*processor.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("CreateIntent")

	if p.FailCreateIntent != nil {
		return nil, p.FailCreateIntent
	}

	// Retried attempts replay the stored intent, as the real processor does.
	if input.IdempotencyKey != "" {
		if in, ok := p.intentsByKey[input.IdempotencyKey]; ok {
			return in, nil
		}
	}

	p.seq++
	in := &processor.Intent{
		ID:           fmt.Sprintf("pi_mock_%d", p.seq),
		ClientSecret: fmt.Sprintf("pi_mock_%d_secret", p.seq),
		Status:       p.IntentStatus,
		Amount:       input.Amount,
	}
	p.intents[in.ID] = in
	if input.IdempotencyKey != "" {
		p.intentsByKey[input.IdempotencyKey] = in
	}
	return in, nil
}

// RetrieveIntent returns a stored intent.
func (p *Processor) RetrieveIntent(_ context.Context, id string) (*processor.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("RetrieveIntent")

	in, ok := p.intents[id]
	if !ok {
		return nil, &processor.Error{Code: "resource_missing", Type: "invalid_request_error", Message: "no such intent"}
	}
	cp := *in
	return &cp, nil
}

// SetIntentStatus overrides a stored intent's status, simulating the
// client-side confirmation completing.
func (p *Processor) SetIntentStatus(id, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if in, ok := p.intents[id]; ok {
		in.Status = status
	}
}

// VerifyWebhook trusts the payload as-is; the mock has no signatures. The
// signature argument selects the event kind for tests: it is parsed as
// "<kind>:<account_id>".
func (p *Processor) VerifyWebhook(_ []byte, signature string) (*processor.WebhookEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count("VerifyWebhook")

	for _, kind := range []processor.WebhookKind{
		processor.WebhookAccountUpdated,
		processor.WebhookBankAccountAdded,
		processor.WebhookBankAccountUpdated,
		processor.WebhookBankAccountDeleted,
		processor.WebhookAccountDeleted,
	} {
		prefix := string(kind) + ":"
		if len(signature) > len(prefix) && signature[:len(prefix)] == prefix {
			ev := &processor.WebhookEvent{Kind: kind, AccountID: signature[len(prefix):]}
			if kind == processor.WebhookAccountUpdated {
				if acct, ok := p.accounts[ev.AccountID]; ok {
					cp := *acct
					ev.Account = &cp
				}
			}
			return ev, nil
		}
	}
	return &processor.WebhookEvent{Kind: processor.WebhookIgnored}, nil
}
