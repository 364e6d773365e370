package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/internal/event"
	"github.com/giftflow/giftflow/internal/mailer"
	"github.com/giftflow/giftflow/internal/processor"
	"github.com/giftflow/giftflow/internal/repository"
)

// KYCService tracks the verification state of payout accounts, both by
// polling and by consuming processor webhooks.
type KYCService struct {
	users    repository.UserRepository
	proc     processor.Processor
	mail     mailer.Mailer
	producer *event.Producer
	logger   *slog.Logger
}

// NewKYCService creates a new KYC service.
func NewKYCService(
	users repository.UserRepository,
	proc processor.Processor,
	mail mailer.Mailer,
	producer *event.Producer,
	logger *slog.Logger,
) *KYCService {
	return &KYCService{
		users:    users,
		proc:     proc,
		mail:     mail,
		producer: producer,
		logger:   logger,
	}
}

// StatusResult is the outcome of a KYC status check.
type StatusResult struct {
	Status  domain.KYCStatus            `json:"status"`
	Message string                      `json:"message"`
	Details *domain.VerificationDetails `json:"details,omitempty"`
}

// statusMessages are the human-readable summaries per status.
var statusMessages = map[domain.KYCStatus]string{
	domain.KYCStatusUnverified: "No payout account is linked yet. Complete your registration to start receiving gifts.",
	domain.KYCStatusPending:    "Your identity check is still in progress. We'll email you once it completes.",
	domain.KYCStatusVerified:   "Your identity is verified and payouts are enabled.",
}

// classify maps a processor requirement snapshot onto the platform's
// three-state KYC model.
func classify(acct *processor.Account) (domain.KYCStatus, *domain.VerificationDetails) {
	details := &domain.VerificationDetails{
		CurrentlyDue:   acct.CurrentlyDue,
		EventuallyDue:  acct.EventuallyDue,
		PastDue:        acct.PastDue,
		DisabledReason: acct.DisabledReason,
		PayoutsEnabled: acct.PayoutsEnabled,
	}
	if len(acct.CurrentlyDue) > 0 || len(acct.PastDue) > 0 || acct.DisabledReason != "" {
		return domain.KYCStatusPending, details
	}
	if acct.PayoutsEnabled {
		return domain.KYCStatusVerified, details
	}
	return domain.KYCStatusPending, details
}

// CheckStatus polls the processor for the user's current requirement state,
// persists the classification, and returns it with a summary message.
func (s *KYCService) CheckStatus(ctx context.Context, userID int64) (*StatusResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for status check: %w", err)
	}

	if user.PayoutAccountID == nil || *user.PayoutAccountID == "" {
		return &StatusResult{
			Status:  domain.KYCStatusUnverified,
			Message: statusMessages[domain.KYCStatusUnverified],
		}, nil
	}

	acct, err := s.proc.RetrieveAccount(ctx, *user.PayoutAccountID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payout account: %w", err)
	}

	status, details := classify(acct)
	if err := s.applyStatus(ctx, user, status, details); err != nil {
		return nil, err
	}

	return &StatusResult{
		Status:  status,
		Message: statusMessages[status],
		Details: details,
	}, nil
}

// HandleWebhook dispatches a verified processor event. Every branch is
// idempotent: replaying a delivery leaves the user unchanged.
func (s *KYCService) HandleWebhook(ctx context.Context, ev *processor.WebhookEvent) error {
	if ev.Kind == processor.WebhookIgnored {
		return nil
	}

	user, err := s.users.GetByPayoutAccountID(ctx, ev.AccountID)
	if err != nil {
		// Accounts we don't know about (deleted users, other platforms on
		// the same processor account) are acknowledged and dropped.
		s.logger.InfoContext(ctx, "webhook for unknown payout account",
			slog.String("account_id", ev.AccountID),
			slog.String("kind", string(ev.Kind)),
		)
		return nil
	}

	switch ev.Kind {
	case processor.WebhookAccountUpdated:
		if ev.Account == nil {
			return fmt.Errorf("account.updated webhook without account payload")
		}
		status, details := classify(ev.Account)
		return s.applyStatus(ctx, user, status, details)

	case processor.WebhookBankAccountAdded, processor.WebhookBankAccountUpdated:
		if ev.BankAccount == nil {
			return fmt.Errorf("bank account webhook without payload")
		}
		// The processor only echoes the suffix. The full number supplied at
		// registration stays untouched on the row.
		if user.AccountLast4 == ev.BankAccount.Last4 && user.RoutingNumber == ev.BankAccount.RoutingNumber {
			return nil
		}
		user.RoutingNumber = ev.BankAccount.RoutingNumber
		user.AccountLast4 = ev.BankAccount.Last4
		user.UpdatedAt = time.Now().UTC()
		return s.users.Update(ctx, user)

	case processor.WebhookBankAccountDeleted:
		if user.RoutingNumber == "" && user.AccountNumber == "" && user.AccountLast4 == "" {
			return nil
		}
		user.RoutingNumber = ""
		user.AccountNumber = ""
		user.AccountLast4 = ""
		user.UpdatedAt = time.Now().UTC()
		return s.users.Update(ctx, user)

	case processor.WebhookAccountDeleted:
		if user.PayoutAccountID == nil {
			return nil
		}
		previous := user.KYCStatus
		user.PayoutAccountID = nil
		user.KYCStatus = domain.KYCStatusUnverified
		user.VerificationDetails = nil
		user.RoutingNumber = ""
		user.AccountNumber = ""
		user.AccountLast4 = ""
		user.UpdatedAt = time.Now().UTC()
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("clear payout linkage: %w", err)
		}
		s.publishStatusChange(ctx, user, previous)
		s.sendAccountRemovedEmail(ctx, user)
		return nil
	}

	return nil
}

// applyStatus persists a fresh classification. The congratulations email
// fires only on the transition into verified, so webhook replays stay quiet.
func (s *KYCService) applyStatus(ctx context.Context, user *domain.User, status domain.KYCStatus, details *domain.VerificationDetails) error {
	previous := user.KYCStatus
	changed := previous != status

	user.KYCStatus = status
	user.VerificationDetails = details
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("persist kyc status: %w", err)
	}

	if !changed {
		return nil
	}

	s.logger.InfoContext(ctx, "kyc status changed",
		slog.Int64("user_id", user.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(status)),
	)
	s.publishStatusChange(ctx, user, previous)

	if status == domain.KYCStatusVerified {
		s.sendVerifiedEmail(ctx, user)
	}
	return nil
}

func (s *KYCService) publishStatusChange(ctx context.Context, user *domain.User, previous domain.KYCStatus) {
	if err := s.producer.PublishKYCStatusChanged(ctx, user, previous); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.kyc_status_changed event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *KYCService) sendVerifiedEmail(ctx context.Context, user *domain.User) {
	msg := &mailer.Message{
		To:      user.Email,
		Subject: "You're verified on Giftflow",
		Text: fmt.Sprintf("Hi %s,\n\nYour identity check is complete and payouts are enabled. Gifts sent to your events will now reach your bank account.\n",
			user.FirstName),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "failed to send verification complete email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *KYCService) sendAccountRemovedEmail(ctx context.Context, user *domain.User) {
	msg := &mailer.Message{
		To:      user.Email,
		Subject: "Your Giftflow payout account was removed",
		Text: fmt.Sprintf("Hi %s,\n\nYour payout account was removed by the payment processor. You'll need to set up payouts again before you can receive gifts.\n",
			user.FirstName),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "failed to send account removed email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}
