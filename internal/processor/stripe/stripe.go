// Package stripe implements the payment processor boundary on top of the
// Stripe API using custom connected accounts and destination charges.
package stripe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	stripesdk "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/bankaccount"
	"github.com/stripe/stripe-go/v82/file"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/giftflow/giftflow/internal/processor"
)

// Processor talks to Stripe. The API key is process-global, matching the
// SDK's package-level client.
type Processor struct {
	webhookSecret string
	logger        *slog.Logger
}

// New configures the Stripe SDK and returns the processor.
func New(apiKey, webhookSecret string, logger *slog.Logger) *Processor {
	stripesdk.Key = apiKey
	return &Processor{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "stripe"
}

// CreateAccount creates a custom connected account. When the input carries
// a full profile the account is created with the individual's details;
// a minimal input (email + country) still yields a usable account that the
// user completes later through verification webhooks.
func (p *Processor) CreateAccount(ctx context.Context, input *processor.AccountInput) (string, error) {
	params := &stripesdk.AccountParams{
		Type:    stripesdk.String(string(stripesdk.AccountTypeCustom)),
		Country: stripesdk.String(input.Country),
		Email:   stripesdk.String(input.Email),
		Capabilities: &stripesdk.AccountCapabilitiesParams{
			Transfers: &stripesdk.AccountCapabilitiesTransfersParams{
				Requested: stripesdk.Bool(true),
			},
			CardPayments: &stripesdk.AccountCapabilitiesCardPaymentsParams{
				Requested: stripesdk.Bool(true),
			},
		},
	}
	params.Context = ctx

	if input.FirstName != "" {
		params.BusinessType = stripesdk.String(string(stripesdk.AccountBusinessTypeIndividual))
		params.Individual = individualParams(input)
	}

	acct, err := account.New(params)
	if err != nil {
		return "", wrap("create account", err)
	}
	return acct.ID, nil
}

// UpdateAccount pushes profile changes to the connected account.
func (p *Processor) UpdateAccount(ctx context.Context, accountID string, input *processor.AccountInput) error {
	params := &stripesdk.AccountParams{
		Email:      stripesdk.String(input.Email),
		Individual: individualParams(input),
	}
	params.Context = ctx

	if _, err := account.Update(accountID, params); err != nil {
		return wrap("update account", err)
	}
	return nil
}

// RetrieveAccount fetches the account and flattens its requirement state.
func (p *Processor) RetrieveAccount(ctx context.Context, accountID string) (*processor.Account, error) {
	params := &stripesdk.AccountParams{}
	params.Context = ctx

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		return nil, wrap("retrieve account", err)
	}
	return fromAccount(acct), nil
}

// DeleteAccount removes the connected account.
func (p *Processor) DeleteAccount(ctx context.Context, accountID string) error {
	params := &stripesdk.AccountParams{}
	params.Context = ctx

	if _, err := account.Del(accountID, params); err != nil {
		return wrap("delete account", err)
	}
	return nil
}

// AttachBankAccount attaches an external bank account for payouts.
func (p *Processor) AttachBankAccount(ctx context.Context, input *processor.BankAccountInput) (*processor.BankAccount, error) {
	params := &stripesdk.BankAccountParams{
		Account:           stripesdk.String(input.AccountID),
		Country:           stripesdk.String(input.Country),
		Currency:          stripesdk.String(input.Currency),
		AccountNumber:     stripesdk.String(input.AccountNumber),
		RoutingNumber:     stripesdk.String(input.RoutingNumber),
		AccountHolderName: stripesdk.String(input.HolderName),
		AccountHolderType: stripesdk.String("individual"),
	}
	params.Context = ctx

	ba, err := bankaccount.New(params)
	if err != nil {
		return nil, wrap("attach bank account", err)
	}
	return &processor.BankAccount{
		ID:            ba.ID,
		Last4:         ba.Last4,
		RoutingNumber: ba.RoutingNumber,
	}, nil
}

// ListBankAccounts lists the external accounts attached to the account.
func (p *Processor) ListBankAccounts(ctx context.Context, accountID string) ([]processor.BankAccount, error) {
	params := &stripesdk.BankAccountListParams{
		Account: stripesdk.String(accountID),
	}
	params.Context = ctx

	var out []processor.BankAccount
	iter := bankaccount.List(params)
	for iter.Next() {
		ba := iter.BankAccount()
		out = append(out, processor.BankAccount{
			ID:            ba.ID,
			Last4:         ba.Last4,
			RoutingNumber: ba.RoutingNumber,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("list bank accounts", err)
	}
	return out, nil
}

// DeleteBankAccount detaches an external bank account.
func (p *Processor) DeleteBankAccount(ctx context.Context, accountID, bankAccountID string) error {
	params := &stripesdk.BankAccountParams{
		Account: stripesdk.String(accountID),
	}
	params.Context = ctx

	if _, err := bankaccount.Del(bankAccountID, params); err != nil {
		return wrap("delete bank account", err)
	}
	return nil
}

// UploadFile uploads an identity document and returns the Stripe file ID.
func (p *Processor) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	params := &stripesdk.FileParams{
		FileReader: bytes.NewReader(data),
		Filename:   stripesdk.String(filename),
		Purpose:    stripesdk.String(string(stripesdk.FilePurposeIdentityDocument)),
	}
	params.Context = ctx

	f, err := file.New(params)
	if err != nil {
		return "", wrap("upload file", err)
	}
	return f.ID, nil
}

// AttachVerificationDocuments links uploaded files to the individual's
// identity verification on the connected account.
func (p *Processor) AttachVerificationDocuments(ctx context.Context, accountID, frontID, backID, additionalID string) error {
	verification := &stripesdk.PersonVerificationParams{}
	if frontID != "" || backID != "" {
		doc := &stripesdk.PersonVerificationDocumentParams{}
		if frontID != "" {
			doc.Front = stripesdk.String(frontID)
		}
		if backID != "" {
			doc.Back = stripesdk.String(backID)
		}
		verification.Document = doc
	}
	if additionalID != "" {
		verification.AdditionalDocument = &stripesdk.PersonVerificationDocumentParams{
			Front: stripesdk.String(additionalID),
		}
	}

	params := &stripesdk.AccountParams{
		Individual: &stripesdk.PersonParams{
			Verification: verification,
		},
	}
	params.Context = ctx

	if _, err := account.Update(accountID, params); err != nil {
		return wrap("attach verification documents", err)
	}
	return nil
}

// CreateIntent creates a payment intent charging the sender and routing the
// full amount to the destination account, less the application fee kept by
// the platform. Redirect-based payment methods are disabled so the client
// confirms in a single round trip.
func (p *Processor) CreateIntent(ctx context.Context, input *processor.IntentInput) (*processor.Intent, error) {
	params := &stripesdk.PaymentIntentParams{
		Amount:               stripesdk.Int64(input.Amount),
		Currency:             stripesdk.String(input.Currency),
		ApplicationFeeAmount: stripesdk.Int64(input.ApplicationFee),
		Description:          stripesdk.String(input.Description),
		TransferData: &stripesdk.PaymentIntentTransferDataParams{
			Destination: stripesdk.String(input.Destination),
		},
		AutomaticPaymentMethods: &stripesdk.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripesdk.Bool(true),
			AllowRedirects: stripesdk.String("never"),
		},
	}
	params.Context = ctx
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}

	in, err := paymentintent.New(params)
	if err != nil {
		return nil, wrap("create intent", err)
	}
	return fromIntent(in), nil
}

// RetrieveIntent fetches a payment intent by ID.
func (p *Processor) RetrieveIntent(ctx context.Context, id string) (*processor.Intent, error) {
	params := &stripesdk.PaymentIntentParams{}
	params.Context = ctx

	in, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, wrap("retrieve intent", err)
	}
	return fromIntent(in), nil
}

// VerifyWebhook checks the Stripe-Signature header against the endpoint
// secret and normalizes the connect events the platform acts on. Anything
// else comes back as ignored so the handler can acknowledge it.
func (p *Processor) VerifyWebhook(payload []byte, signature string) (*processor.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, wrap("verify webhook", err)
	}

	switch event.Type {
	case "account.updated":
		var acct stripesdk.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return nil, fmt.Errorf("stripe: decode account.updated: %w", err)
		}
		return &processor.WebhookEvent{
			Kind:      processor.WebhookAccountUpdated,
			AccountID: acct.ID,
			Account:   fromAccount(&acct),
		}, nil

	case "account.external_account.created", "account.external_account.updated", "account.external_account.deleted":
		var ba stripesdk.BankAccount
		if err := json.Unmarshal(event.Data.Raw, &ba); err != nil {
			return nil, fmt.Errorf("stripe: decode external account: %w", err)
		}
		kind := processor.WebhookBankAccountAdded
		switch event.Type {
		case "account.external_account.updated":
			kind = processor.WebhookBankAccountUpdated
		case "account.external_account.deleted":
			kind = processor.WebhookBankAccountDeleted
		}
		return &processor.WebhookEvent{
			Kind:      kind,
			AccountID: event.Account,
			BankAccount: &processor.BankAccount{
				ID:            ba.ID,
				Last4:         ba.Last4,
				RoutingNumber: ba.RoutingNumber,
			},
		}, nil

	case "account.deleted":
		var acct stripesdk.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return nil, fmt.Errorf("stripe: decode account.deleted: %w", err)
		}
		// Connect delivers account.deleted without the top-level account
		// field, so the ID comes from the payload.
		accountID := event.Account
		if accountID == "" {
			accountID = acct.ID
		}
		return &processor.WebhookEvent{
			Kind:      processor.WebhookAccountDeleted,
			AccountID: accountID,
		}, nil

	case "account.application.deauthorized":
		return &processor.WebhookEvent{
			Kind:      processor.WebhookAccountDeleted,
			AccountID: event.Account,
		}, nil
	}

	p.logger.Debug("ignoring webhook event", slog.String("type", string(event.Type)))
	return &processor.WebhookEvent{Kind: processor.WebhookIgnored}, nil
}

func individualParams(input *processor.AccountInput) *stripesdk.PersonParams {
	person := &stripesdk.PersonParams{
		FirstName: stripesdk.String(input.FirstName),
		LastName:  stripesdk.String(input.LastName),
		Email:     stripesdk.String(input.Email),
		Phone:     stripesdk.String(input.Phone),
		Address: &stripesdk.AddressParams{
			Line1:      stripesdk.String(input.Line1),
			City:       stripesdk.String(input.City),
			State:      stripesdk.String(input.State),
			PostalCode: stripesdk.String(input.PostalCode),
			Country:    stripesdk.String(input.Country),
		},
	}
	if input.Line2 != "" {
		person.Address.Line2 = stripesdk.String(input.Line2)
	}
	if !input.DateOfBirth.IsZero() {
		person.DOB = &stripesdk.PersonDOBParams{
			Day:   stripesdk.Int64(int64(input.DateOfBirth.Day())),
			Month: stripesdk.Int64(int64(input.DateOfBirth.Month())),
			Year:  stripesdk.Int64(int64(input.DateOfBirth.Year())),
		}
	}
	return person
}

func fromAccount(acct *stripesdk.Account) *processor.Account {
	out := &processor.Account{
		ID:             acct.ID,
		PayoutsEnabled: acct.PayoutsEnabled,
	}
	if acct.Requirements != nil {
		out.DisabledReason = string(acct.Requirements.DisabledReason)
		out.CurrentlyDue = acct.Requirements.CurrentlyDue
		out.EventuallyDue = acct.Requirements.EventuallyDue
		out.PastDue = acct.Requirements.PastDue
	}
	return out
}

func fromIntent(in *stripesdk.PaymentIntent) *processor.Intent {
	return &processor.Intent{
		ID:           in.ID,
		ClientSecret: in.ClientSecret,
		Status:       string(in.Status),
		Amount:       in.Amount,
	}
}

// wrap converts SDK errors into the processor error type so callers never
// import the SDK.
func wrap(op string, err error) error {
	var serr *stripesdk.Error
	if errors.As(err, &serr) {
		return fmt.Errorf("stripe: %s: %w", op, &processor.Error{
			Code:    string(serr.Code),
			Type:    string(serr.Type),
			Param:   serr.Param,
			Message: serr.Msg,
		})
	}
	return fmt.Errorf("stripe: %s: %w", op, err)
}
