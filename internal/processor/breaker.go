package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// WithBreaker wraps a Processor with a circuit breaker and a per-call
// deadline, so a degraded processor fails fast instead of tying up request
// handlers. Webhook verification is local (HMAC over the payload) and
// bypasses both. A non-positive timeout leaves the caller's context alone.
func WithBreaker(next Processor, maxRequests uint32, timeout time.Duration, logger *slog.Logger) Processor {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: maxRequests,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("processor circuit breaker state change",
				slog.String("processor", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Only count processor-side failures; rejected requests
			// (validation errors) do not indicate an outage.
			if perr, ok := AsError(err); ok {
				return !perr.Transient()
			}
			return false
		},
	})
	return &breakerProcessor{next: next, cb: cb, timeout: timeout}
}

type breakerProcessor struct {
	next    Processor
	cb      *gobreaker.CircuitBreaker[any]
	timeout time.Duration
}

func (b *breakerProcessor) Name() string {
	return b.next.Name()
}

func (b *breakerProcessor) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *breakerProcessor) execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

func (b *breakerProcessor) CreateAccount(ctx context.Context, input *AccountInput) (string, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	v, err := b.execute(func() (any, error) {
		return b.next.CreateAccount(ctx, input)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *breakerProcessor) UpdateAccount(ctx context.Context, accountID string, input *AccountInput) error {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	_, err := b.execute(func() (any, error) {
		return nil, b.next.UpdateAccount(ctx, accountID, input)
	})
	return err
}

func (b *breakerProcessor) RetrieveAccount(ctx context.Context, accountID string) (*Account, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	v, err := b.execute(func() (any, error) {
		return b.next.RetrieveAccount(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Account), nil
}

func (b *breakerProcessor) DeleteAccount(ctx context.Context, accountID string) error {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	_, err := b.execute(func() (any, error) {
		return nil, b.next.DeleteAccount(ctx, accountID)
	})
	return err
}

func (b *breakerProcessor) AttachBankAccount(ctx context.Context, input *BankAccountInput) (*BankAccount, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	v, err := b.execute(func() (any, error) {
		return b.next.AttachBankAccount(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return v.(*BankAccount), nil
}

func (b *breakerProcessor) ListBankAccounts(ctx context.Context, accountID string) ([]BankAccount, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	v, err := b.execute(func() (any, error) {
		return b.next.ListBankAccounts(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]BankAccount), nil
}

func (b *breakerProcessor) DeleteBankAccount(ctx context.Context, accountID, bankAccountID string) error {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	_, err := b.execute(func() (any, error) {
		return nil, b.next.DeleteBankAccount(ctx, accountID, bankAccountID)
	})
	return err
}

func (b *breakerProcessor) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	v, err := b.execute(func() (any, error) {
		return b.next.UploadFile(ctx, filename, data)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *breakerProcessor) AttachVerificationDocuments(ctx context.Context, accountID, frontID, backID, additionalID string) error {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	_, err := b.execute(func() (any, error) {
		return nil, b.next.AttachVerificationDocuments(ctx, accountID, frontID, backID, additionalID)
	})
	return err
}

func (b *breakerProcessor) CreateIntent(ctx context.Context, input *IntentInput) (*Intent, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	v, err := b.execute(func() (any, error) {
		return b.next.CreateIntent(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Intent), nil
}

func (b *breakerProcessor) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	v, err := b.execute(func() (any, error) {
		return b.next.RetrieveIntent(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Intent), nil
}

func (b *breakerProcessor) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	return b.next.VerifyWebhook(payload, signature)
}
