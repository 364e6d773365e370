package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/giftflow/giftflow/internal/auth"
	"github.com/giftflow/giftflow/internal/config"
	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/internal/event"
	"github.com/giftflow/giftflow/internal/mailer"
	"github.com/giftflow/giftflow/internal/processor"
	"github.com/giftflow/giftflow/internal/repository"
	"github.com/giftflow/giftflow/internal/storage"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// Payout account creation tiers. Full means the account was created with the
// complete profile; minimal means the fallback (email + country only)
// succeeded and the user completes verification later.
const (
	AccountTierFull    = "full"
	AccountTierMinimal = "minimal"
)

// OnboardingService implements registration, verification, and account
// lifecycle for gift recipients.
type OnboardingService struct {
	users    repository.UserRepository
	events   repository.EventRepository
	proc     processor.Processor
	store    storage.Storage
	mail     mailer.Mailer
	jwt      *auth.JWTManager
	producer *event.Producer
	cfg      *config.Config
	logger   *slog.Logger
}

// NewOnboardingService creates a new onboarding service.
func NewOnboardingService(
	users repository.UserRepository,
	events repository.EventRepository,
	proc processor.Processor,
	store storage.Storage,
	mail mailer.Mailer,
	jwt *auth.JWTManager,
	producer *event.Producer,
	cfg *config.Config,
	logger *slog.Logger,
) *OnboardingService {
	return &OnboardingService{
		users:    users,
		events:   events,
		proc:     proc,
		store:    store,
		mail:     mail,
		jwt:      jwt,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}
}

// RegisterInput holds the parameters for registering a new recipient.
type RegisterInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Phone         string
	DateOfBirth   time.Time
	Address       domain.Address
	RoutingNumber string
	AccountNumber string

	DocumentFront      *FileUpload
	DocumentBack       *FileUpload
	DocumentAdditional *FileUpload
}

// RegisterResult is the outcome of a successful registration.
type RegisterResult struct {
	User        *domain.User
	Tokens      *domain.TokenPair
	AccountTier string
}

// compensation is one undo step of the registration saga.
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

// compensate runs the recorded undo steps in reverse order. Failures are
// logged and the unwind continues.
func (s *OnboardingService) compensate(ctx context.Context, comps []compensation) {
	for i := len(comps) - 1; i >= 0; i-- {
		if err := comps[i].run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "registration compensation failed",
				slog.String("step", comps[i].name),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Register validates the applicant, provisions the payout account and
// verification documents with the payment processor, and persists the user
// in the pending KYC state. External side effects are unwound in reverse
// order if a later step fails.
func (s *OnboardingService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if err := s.validateRegistration(input); err != nil {
		return nil, err
	}

	// Duplicate handling: a verified account is a conflict; an unverified
	// one is resubmission and the row is reused.
	existing, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up email: %w", err)
	}
	if existing != nil && existing.IsVerified() {
		return nil, apperrors.Conflict("EMAIL_ALREADY_REGISTERED", "an account with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var comps []compensation
	fail := func(err error) (*RegisterResult, error) {
		s.compensate(ctx, comps)
		return nil, err
	}

	// Store identity documents in object storage first; keys go onto the
	// user row so documents can be re-examined later.
	docs, docComps, err := s.storeDocuments(ctx, input)
	if err != nil {
		return fail(err)
	}
	comps = append(comps, docComps...)

	accountID, tier, err := s.createPayoutAccount(ctx, input)
	if err != nil {
		return fail(fmt.Errorf("create payout account: %w", err))
	}
	comps = append(comps, compensation{
		name: "delete payout account",
		run:  func(ctx context.Context) error { return s.proc.DeleteAccount(ctx, accountID) },
	})

	if err := s.submitDocuments(ctx, accountID, input); err != nil {
		return fail(fmt.Errorf("submit verification documents: %w", err))
	}

	bank, err := s.proc.AttachBankAccount(ctx, &processor.BankAccountInput{
		AccountID:     accountID,
		AccountNumber: input.AccountNumber,
		RoutingNumber: strings.ReplaceAll(input.RoutingNumber, "-", ""),
		HolderName:    input.FirstName + " " + input.LastName,
		Country:       s.cfg.AccountCountry,
		Currency:      s.cfg.Currency,
	})
	if err != nil {
		return fail(fmt.Errorf("attach bank account: %w", err))
	}

	now := time.Now().UTC()
	verified := false
	user := existing
	if user == nil {
		user = &domain.User{CreatedAt: now}
	}
	user.Email = input.Email
	user.PasswordHash = string(hashedPassword)
	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Phone = input.Phone
	user.DateOfBirth = input.DateOfBirth
	user.Address = input.Address
	user.Verified = &verified
	user.KYCStatus = domain.KYCStatusPending
	user.PayoutAccountID = &accountID
	user.RoutingNumber = input.RoutingNumber
	user.AccountNumber = input.AccountNumber
	user.AccountLast4 = bank.Last4
	user.Documents = docs
	user.VerificationDetails = nil
	user.UpdatedAt = now

	if existing != nil {
		err = s.users.Update(ctx, user)
	} else {
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		return fail(fmt.Errorf("persist user: %w", err))
	}
	if existing == nil {
		// A later failure must not leave a fresh row pointing at an
		// unwound payout account. Resubmissions keep their row.
		comps = append(comps, compensation{
			name: "delete user row",
			run:  func(ctx context.Context) error { return s.users.Delete(ctx, user.ID) },
		})
	}

	// Tokens carry the generated numeric ID, so issue them after persisting.
	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return fail(err)
	}

	s.sendVerificationEmail(ctx, user)

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("account_tier", tier),
		slog.Bool("resubmission", existing != nil),
	)

	return &RegisterResult{User: user, Tokens: tokens, AccountTier: tier}, nil
}

// validateRegistration applies every precondition before any external call:
// a rejected applicant must leave no trace anywhere.
func (s *OnboardingService) validateRegistration(input RegisterInput) error {
	fields := make(map[string]string)

	if strings.TrimSpace(input.Email) == "" {
		fields["email"] = "email is required"
	}
	if strings.TrimSpace(input.FirstName) == "" {
		fields["first_name"] = "first name is required"
	}
	if strings.TrimSpace(input.LastName) == "" {
		fields["last_name"] = "last name is required"
	}
	if issue := passwordIssue(input.Password); issue != "" {
		fields["password"] = issue
	}

	validatePhone(input.Phone, fields)
	validateAge(input.DateOfBirth, s.cfg.MinimumAge, time.Now().UTC(), fields)
	validateAddress(input.Address, fields)
	validateBankDetails(input.RoutingNumber, input.AccountNumber, fields)

	// Identity verification needs both sides of the document; only the
	// additional slot is optional. Each slot carries its own size cap.
	validateDocument("front", input.DocumentFront, true, int64(s.cfg.DocFrontMaxSizeMB)<<20, fields)
	validateDocument("back", input.DocumentBack, true, int64(s.cfg.DocBackMaxSizeMB)<<20, fields)
	validateDocument("additional", input.DocumentAdditional, false, int64(s.cfg.DocAdditionalMaxSizeMB)<<20, fields)

	if len(fields) > 0 {
		return apperrors.InvalidFields("registration validation failed", fields)
	}
	return nil
}

// storeDocuments uploads the provided document slots to object storage and
// returns the keys plus the matching undo steps.
func (s *OnboardingService) storeDocuments(ctx context.Context, input RegisterInput) (domain.VerificationDocuments, []compensation, error) {
	var docs domain.VerificationDocuments
	var comps []compensation

	slots := []struct {
		file *FileUpload
		dst  *string
	}{
		{input.DocumentFront, &docs.FrontKey},
		{input.DocumentBack, &docs.BackKey},
		{input.DocumentAdditional, &docs.AdditionalKey},
	}
	for _, slot := range slots {
		if slot.file == nil {
			continue
		}
		key := storageKey("kyc", slot.file.Filename)
		err := s.store.Upload(ctx, &storage.UploadInput{
			Key:         key,
			ContentType: slot.file.ContentType,
			Size:        slot.file.Size,
			Data:        bytes.NewReader(slot.file.Data),
		})
		if err != nil {
			s.compensate(ctx, comps)
			return domain.VerificationDocuments{}, nil, fmt.Errorf("store document: %w", err)
		}
		comps = append(comps, compensation{
			name: "delete stored document " + key,
			run:  func(ctx context.Context) error { return s.store.Delete(ctx, key) },
		})
		*slot.dst = key
	}
	return docs, comps, nil
}

// createPayoutAccount tries the full-profile account first, retrying
// transient processor failures a bounded number of times, then falls back
// to a minimal account the user can complete later.
func (s *OnboardingService) createPayoutAccount(ctx context.Context, input RegisterInput) (string, string, error) {
	full := &processor.AccountInput{
		Email:       input.Email,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Phone:       input.Phone,
		DateOfBirth: input.DateOfBirth,
		Line1:       input.Address.Line1,
		Line2:       input.Address.Line2,
		City:        input.Address.City,
		State:       input.Address.State,
		PostalCode:  input.Address.PostalCode,
		Country:     s.cfg.AccountCountry,
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.ProcessorMaxRetries; attempt++ {
		id, err := s.proc.CreateAccount(ctx, full)
		if err == nil {
			return id, AccountTierFull, nil
		}
		lastErr = err
		perr, ok := processor.AsError(err)
		if !ok || !perr.Transient() {
			break
		}
	}

	s.logger.WarnContext(ctx, "full-profile payout account creation failed, falling back to minimal account",
		slog.String("email", input.Email),
		slog.String("error", lastErr.Error()),
	)

	id, err := s.proc.CreateAccount(ctx, &processor.AccountInput{
		Email:   input.Email,
		Country: s.cfg.AccountCountry,
	})
	if err != nil {
		return "", "", fmt.Errorf("%w (full profile: %v)", err, lastErr)
	}
	return id, AccountTierMinimal, nil
}

// submitDocuments uploads the document files to the processor concurrently
// and attaches them to the account's identity verification.
func (s *OnboardingService) submitDocuments(ctx context.Context, accountID string, input RegisterInput) error {
	files := []*FileUpload{input.DocumentFront, input.DocumentBack, input.DocumentAdditional}
	ids := make([]string, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		if f == nil {
			continue
		}
		wg.Add(1)
		go func(i int, f *FileUpload) {
			defer wg.Done()
			ids[i], errs[i] = s.proc.UploadFile(ctx, f.Filename, f.Data)
		}(i, f)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("upload document: %w", err)
		}
	}

	return s.proc.AttachVerificationDocuments(ctx, accountID, ids[0], ids[1], ids[2])
}

// Verify confirms the user's email address. Verifying an already verified
// account succeeds and just reissues tokens.
func (s *OnboardingService) Verify(ctx context.Context, token string) (*domain.User, *domain.TokenPair, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid or expired verification token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user for verification: %w", err)
	}

	firstVerification := !user.IsVerified()
	if firstVerification {
		verified := true
		user.Verified = &verified
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if firstVerification {
		s.sendWelcomeEmail(ctx, user)
		if err := s.producer.PublishUserVerified(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user.verified event",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.Int64("user_id", user.ID),
		slog.Bool("already_verified", !firstVerification),
	)

	return user, tokens, nil
}

// Login authenticates a verified user with email and password.
func (s *OnboardingService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}
	if !user.IsVerified() {
		return nil, nil, apperrors.Unauthorized("email address is not verified")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *OnboardingService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	user.AccessToken = access
	user.RefreshToken = refreshToken
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("persist refreshed token: %w", err)
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// UpdatePassword changes the password of an authenticated user.
func (s *OnboardingService) UpdatePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if issue := passwordIssue(newPassword); issue != "" {
		return apperrors.InvalidInput(issue)
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", slog.Int64("user_id", user.ID))
	return nil
}

// ForgotPassword resets the password to a generated temporary one and mails
// it to the user. Unknown emails succeed silently so the endpoint does not
// leak which addresses exist.
func (s *OnboardingService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.InfoContext(ctx, "password reset requested for unknown email",
			slog.String("email", email),
		)
		return nil
	}

	temp, err := temporaryPassword()
	if err != nil {
		return fmt.Errorf("generate temporary password: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(temp), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash temporary password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("persist temporary password: %w", err)
	}

	msg := &mailer.Message{
		To:      user.Email,
		Subject: "Your temporary Giftflow password",
		Text: fmt.Sprintf("Hi %s,\n\nYour password has been reset. Your temporary password is:\n\n%s\n\nPlease log in and change it right away.\n",
			user.FirstName, temp),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send temporary password email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset issued", slog.Int64("user_id", user.ID))
	return nil
}

// UpdateProfileInput holds the fields a user may change after registration.
// Nil pointers leave the corresponding field untouched.
type UpdateProfileInput struct {
	FirstName     *string
	LastName      *string
	Phone         *string
	Address       *domain.Address
	RoutingNumber *string
	AccountNumber *string

	DocumentFront      *FileUpload
	DocumentBack       *FileUpload
	DocumentAdditional *FileUpload
}

// UpdateProfile merges profile changes, replaces any re-submitted document
// slots, pushes the changes to the payment processor, and re-attaches a
// replacement bank account when new details are supplied.
func (s *OnboardingService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for profile update: %w", err)
	}

	fields := make(map[string]string)
	if input.FirstName != nil && strings.TrimSpace(*input.FirstName) == "" {
		fields["first_name"] = "first name must not be empty"
	}
	if input.LastName != nil && strings.TrimSpace(*input.LastName) == "" {
		fields["last_name"] = "last name must not be empty"
	}
	if input.Phone != nil {
		validatePhone(*input.Phone, fields)
	}
	if input.Address != nil {
		validateAddress(*input.Address, fields)
	}
	if (input.RoutingNumber == nil) != (input.AccountNumber == nil) {
		fields["bank"] = "routing number and account number must be replaced together"
	} else if input.RoutingNumber != nil {
		validateBankDetails(*input.RoutingNumber, *input.AccountNumber, fields)
	}
	validateDocument("front", input.DocumentFront, false, int64(s.cfg.DocFrontMaxSizeMB)<<20, fields)
	validateDocument("back", input.DocumentBack, false, int64(s.cfg.DocBackMaxSizeMB)<<20, fields)
	validateDocument("additional", input.DocumentAdditional, false, int64(s.cfg.DocAdditionalMaxSizeMB)<<20, fields)
	if len(fields) > 0 {
		return nil, apperrors.InvalidFields("profile validation failed", fields)
	}

	profileChanged := false
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
		profileChanged = true
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
		profileChanged = true
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
		profileChanged = true
	}
	if input.Address != nil {
		user.Address = *input.Address
		profileChanged = true
	}

	if profileChanged && user.PayoutAccountID != nil {
		if err := s.proc.UpdateAccount(ctx, *user.PayoutAccountID, &processor.AccountInput{
			Email:       user.Email,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Phone:       user.Phone,
			DateOfBirth: user.DateOfBirth,
			Line1:       user.Address.Line1,
			Line2:       user.Address.Line2,
			City:        user.Address.City,
			State:       user.Address.State,
			PostalCode:  user.Address.PostalCode,
			Country:     s.cfg.AccountCountry,
		}); err != nil {
			return nil, fmt.Errorf("update payout account: %w", err)
		}
	}

	if err := s.replaceDocuments(ctx, user, input); err != nil {
		return nil, err
	}

	if input.RoutingNumber != nil && user.PayoutAccountID != nil {
		bank, err := s.proc.AttachBankAccount(ctx, &processor.BankAccountInput{
			AccountID:     *user.PayoutAccountID,
			AccountNumber: *input.AccountNumber,
			RoutingNumber: strings.ReplaceAll(*input.RoutingNumber, "-", ""),
			HolderName:    user.FirstName + " " + user.LastName,
			Country:       s.cfg.AccountCountry,
			Currency:      s.cfg.Currency,
		})
		if err != nil {
			return nil, fmt.Errorf("replace bank account: %w", err)
		}
		user.RoutingNumber = *input.RoutingNumber
		user.AccountNumber = *input.AccountNumber
		user.AccountLast4 = bank.Last4
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("persist profile update: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated", slog.Int64("user_id", user.ID))
	return user, nil
}

// replaceDocuments re-uploads any provided document slots to both object
// storage and the processor, leaving untouched slots alone.
func (s *OnboardingService) replaceDocuments(ctx context.Context, user *domain.User, input UpdateProfileInput) error {
	if input.DocumentFront == nil && input.DocumentBack == nil && input.DocumentAdditional == nil {
		return nil
	}

	slots := []struct {
		file *FileUpload
		key  *string
	}{
		{input.DocumentFront, &user.Documents.FrontKey},
		{input.DocumentBack, &user.Documents.BackKey},
		{input.DocumentAdditional, &user.Documents.AdditionalKey},
	}
	fileIDs := make([]string, len(slots))

	for i, slot := range slots {
		if slot.file == nil {
			continue
		}
		key := storageKey("kyc", slot.file.Filename)
		if err := s.store.Upload(ctx, &storage.UploadInput{
			Key:         key,
			ContentType: slot.file.ContentType,
			Size:        slot.file.Size,
			Data:        bytes.NewReader(slot.file.Data),
		}); err != nil {
			return fmt.Errorf("store replacement document: %w", err)
		}

		if user.PayoutAccountID != nil {
			id, err := s.proc.UploadFile(ctx, slot.file.Filename, slot.file.Data)
			if err != nil {
				return fmt.Errorf("upload replacement document: %w", err)
			}
			fileIDs[i] = id
		}

		if old := *slot.key; old != "" {
			if err := s.store.Delete(ctx, old); err != nil {
				s.logger.WarnContext(ctx, "failed to delete replaced document",
					slog.String("key", old),
					slog.String("error", err.Error()),
				)
			}
		}
		*slot.key = key
	}

	if user.PayoutAccountID != nil {
		if err := s.proc.AttachVerificationDocuments(ctx, *user.PayoutAccountID, fileIDs[0], fileIDs[1], fileIDs[2]); err != nil {
			return fmt.Errorf("attach replacement documents: %w", err)
		}
	}
	return nil
}

// DeleteAccount removes the user and everything hanging off them: processor
// bank accounts and payout account (best-effort), owned events with their
// ledger rows, stored documents, and finally the user row.
func (s *OnboardingService) DeleteAccount(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for deletion: %w", err)
	}

	if user.PayoutAccountID != nil {
		accountID := *user.PayoutAccountID
		banks, err := s.proc.ListBankAccounts(ctx, accountID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to list bank accounts during deletion",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		for _, ba := range banks {
			if err := s.proc.DeleteBankAccount(ctx, accountID, ba.ID); err != nil {
				s.logger.WarnContext(ctx, "failed to delete bank account",
					slog.String("bank_account_id", ba.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		if err := s.proc.DeleteAccount(ctx, accountID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete payout account",
				slog.String("account_id", accountID),
				slog.String("error", err.Error()),
			)
		}
	}

	// Events go first; their payments cascade with them.
	deleted, err := s.events.DeleteByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete owned events: %w", err)
	}

	for _, key := range []string{user.Documents.FrontKey, user.Documents.BackKey, user.Documents.AdditionalKey} {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete stored document",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "account deleted",
		slog.Int64("user_id", userID),
		slog.Int64("events_deleted", deleted),
	)
	return nil
}

// issueTokens generates a fresh token pair and caches it on the user row.
func (s *OnboardingService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, refresh, err := s.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	user.AccessToken = access
	user.RefreshToken = refresh
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("persist tokens: %w", err)
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// sendVerificationEmail mails the confirmation link. Failures degrade to a
// warning; the registration itself has already succeeded.
func (s *OnboardingService) sendVerificationEmail(ctx context.Context, user *domain.User) {
	link := fmt.Sprintf("%s/api/v1/auth/sign-up/confirm?token=%s", s.cfg.PublicBaseURL, user.AccessToken)
	msg := &mailer.Message{
		To:      user.Email,
		Subject: "Confirm your Giftflow account",
		Text: fmt.Sprintf("Hi %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n",
			user.FirstName, link),
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Please confirm your email address:</p><p><a href=%q>Confirm my account</a></p>",
			user.FirstName, link),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "failed to send verification email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *OnboardingService) sendWelcomeEmail(ctx context.Context, user *domain.User) {
	msg := &mailer.Message{
		To:      user.Email,
		Subject: "Welcome to Giftflow",
		Text: fmt.Sprintf("Hi %s,\n\nYour email address is confirmed. We'll let you know as soon as your identity check completes.\n",
			user.FirstName),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "failed to send welcome email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// passwordIssue checks minimum password complexity, returning an empty
// string when the password is acceptable.
func passwordIssue(password string) string {
	if len(password) < minPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", minPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return "password must contain at least one uppercase letter, one lowercase letter, and one digit"
	}
	return ""
}

// temporaryPassword generates a random password that satisfies the
// complexity rules. Ambiguous characters are excluded.
func temporaryPassword() (string, error) {
	const (
		upper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
		lower   = "abcdefghijkmnpqrstuvwxyz"
		digits  = "23456789"
		charset = upper + lower + digits
	)

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	buf := make([]byte, 12)
	sets := []string{upper, lower, digits}
	for i := range buf {
		set := charset
		if i < len(sets) {
			set = sets[i]
		}
		ch, err := pick(set)
		if err != nil {
			return "", err
		}
		buf[i] = ch
	}
	return string(buf), nil
}
