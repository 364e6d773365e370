package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/giftflow/giftflow/internal/domain"
	mailmock "github.com/giftflow/giftflow/internal/mailer/mock"
	"github.com/giftflow/giftflow/internal/processor"
	procmock "github.com/giftflow/giftflow/internal/processor/mock"
	memstorage "github.com/giftflow/giftflow/internal/storage/memory"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
)

type onboardingFixture struct {
	svc    *OnboardingService
	users  *fakeUserRepo
	events *fakeEventRepo
	proc   *procmock.Processor
	store  *memstorage.Storage
	mail   *mailmock.Mailer
}

func newOnboardingFixture(t *testing.T) *onboardingFixture {
	t.Helper()
	users := newFakeUserRepo()
	events := newFakeEventRepo(users)
	proc := procmock.New()
	store := memstorage.New("http://localhost:8080")
	mail := mailmock.New(testLogger())

	svc := NewOnboardingService(users, events, proc, store, mail, testJWT(), testProducer(), testConfig(), testLogger())
	return &onboardingFixture{svc: svc, users: users, events: events, proc: proc, store: store, mail: mail}
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Email:         "alice@example.com",
		Password:      "Secret123",
		FirstName:     "Alice",
		LastName:      "Smith",
		Phone:         "0412345678",
		DateOfBirth:   time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		Address:       domain.Address{Line1: "1 Collins St", City: "Melbourne", State: "VIC", PostalCode: "3000"},
		RoutingNumber: "062-000",
		AccountNumber: "12345678",
		DocumentFront: &FileUpload{Filename: "front.jpg", ContentType: "image/jpeg", Size: 4, Data: []byte("data")},
		DocumentBack:  &FileUpload{Filename: "back.jpg", ContentType: "image/jpeg", Size: 4, Data: []byte("data")},
	}
}

func TestRegister_LeavesUserPendingAndUnverified(t *testing.T) {
	f := newOnboardingFixture(t)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	require.NotNil(t, res.User.Verified)
	assert.False(t, *res.User.Verified)
	assert.Equal(t, domain.KYCStatusPending, res.User.KYCStatus)
	assert.True(t, res.User.Onboarded())
	assert.Equal(t, AccountTierFull, res.AccountTier)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.NotEmpty(t, res.User.Documents.FrontKey)
	assert.Equal(t, "5678", res.User.AccountLast4)

	_, ok := f.store.Get(res.User.Documents.FrontKey)
	assert.True(t, ok, "front document should be in object storage")

	msg, ok := f.mail.Last()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Contains(t, msg.Text, "confirm")
}

func TestRegister_ValidationFailure_NoExternalCalls(t *testing.T) {
	f := newOnboardingFixture(t)

	input := validRegisterInput()
	input.Address.PostalCode = "30000"
	input.Phone = "12345"

	_, err := f.svc.Register(context.Background(), input)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "address.postal_code")
	assert.Contains(t, appErr.Fields, "phone")

	assert.Equal(t, 0, f.proc.TotalCalls(), "a rejected applicant must not touch the processor")
	assert.Equal(t, 0, f.users.count())
	assert.Len(t, f.mail.Messages(), 0)
}

func TestRegister_RejectsUnderageAndBadDocument(t *testing.T) {
	f := newOnboardingFixture(t)

	input := validRegisterInput()
	input.DateOfBirth = time.Now().UTC().AddDate(-17, 0, 0)
	input.DocumentFront = &FileUpload{Filename: "front.exe", ContentType: "application/octet-stream", Size: 4, Data: []byte("data")}

	_, err := f.svc.Register(context.Background(), input)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "date_of_birth")
	assert.Contains(t, appErr.Fields, "documents.front")
	assert.Equal(t, 0, f.proc.TotalCalls())
}

func TestRegister_RequiresBackDocument(t *testing.T) {
	f := newOnboardingFixture(t)

	input := validRegisterInput()
	input.DocumentBack = nil

	_, err := f.svc.Register(context.Background(), input)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "documents.back")
	assert.Equal(t, 0, f.proc.TotalCalls(), "incomplete documents must not reach the processor")
	assert.Equal(t, 0, f.users.count())
}

func TestRegister_PerSlotDocumentSizeCaps(t *testing.T) {
	f := newOnboardingFixture(t)

	input := validRegisterInput()
	// Over the 5 MB back cap but under the 10 MB additional cap.
	oversized := int64(6) << 20
	input.DocumentBack = &FileUpload{Filename: "back.jpg", ContentType: "image/jpeg", Size: oversized, Data: []byte("data")}
	input.DocumentAdditional = &FileUpload{Filename: "extra.pdf", ContentType: "application/pdf", Size: oversized, Data: []byte("data")}

	_, err := f.svc.Register(context.Background(), input)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "documents.back")
	assert.NotContains(t, appErr.Fields, "documents.additional")
}

func TestRegister_LateFailureRemovesFreshUserRow(t *testing.T) {
	f := newOnboardingFixture(t)
	f.users.failUpdate = errors.New("db gone")

	// The first Update happens while persisting tokens, after the user row
	// and payout account exist.
	_, err := f.svc.Register(context.Background(), validRegisterInput())
	require.Error(t, err)

	assert.Equal(t, 0, f.users.count(), "unwound registration must not leave the user row")
	assert.Equal(t, 1, f.proc.CallCount("DeleteAccount"))
}

func TestRegister_DuplicateVerifiedEmail_Conflicts(t *testing.T) {
	f := newOnboardingFixture(t)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	_, _, err = f.svc.Verify(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), validRegisterInput())
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", appErr.Code)
	assert.Equal(t, 1, f.users.count())
}

func TestRegister_UnverifiedResubmission_ReusesRow(t *testing.T) {
	f := newOnboardingFixture(t)

	first, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	input := validRegisterInput()
	input.FirstName = "Alicia"
	second, err := f.svc.Register(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, 1, f.users.count())
	assert.Equal(t, "Alicia", second.User.FirstName)
	require.NotNil(t, second.User.Verified)
	assert.False(t, *second.User.Verified)
}

func TestRegister_TransientAccountFailure_RetriesToFullTier(t *testing.T) {
	f := newOnboardingFixture(t)
	f.proc.CreateAccountFailures = 2

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	assert.Equal(t, AccountTierFull, res.AccountTier)
	assert.Equal(t, 3, f.proc.CallCount("CreateAccount"))
}

func TestRegister_PermanentAccountFailure_FallsBackToMinimalTier(t *testing.T) {
	f := newOnboardingFixture(t)
	f.proc.CreateAccountFailures = 1
	f.proc.FailCreateAccount = &processor.Error{Code: "account_invalid", Type: "invalid_request_error", Message: "rejected"}

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	assert.Equal(t, AccountTierMinimal, res.AccountTier)
	assert.Equal(t, 2, f.proc.CallCount("CreateAccount"), "no retries on permanent failures")
}

func TestRegister_BankAttachFailure_UnwindsSaga(t *testing.T) {
	f := newOnboardingFixture(t)
	f.proc.FailAttachBank = errors.New("bank attach failed")

	_, err := f.svc.Register(context.Background(), validRegisterInput())
	require.Error(t, err)

	assert.Equal(t, 1, f.proc.CallCount("DeleteAccount"), "payout account should be compensated away")
	assert.Equal(t, 0, f.users.count())
}

func TestVerify_FlipsOnceAndStaysIdempotent(t *testing.T) {
	f := newOnboardingFixture(t)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	user, tokens, err := f.svc.Verify(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, user.IsVerified())
	assert.NotEmpty(t, tokens.AccessToken)

	welcomes := 0
	for _, m := range f.mail.Messages() {
		if strings.Contains(m.Subject, "Welcome") {
			welcomes++
		}
	}
	assert.Equal(t, 1, welcomes)

	// Replaying the confirmation link succeeds without a second welcome mail.
	again, tokens2, err := f.svc.Verify(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, again.IsVerified())
	assert.NotEmpty(t, tokens2.AccessToken)

	welcomes = 0
	for _, m := range f.mail.Messages() {
		if strings.Contains(m.Subject, "Welcome") {
			welcomes++
		}
	}
	assert.Equal(t, 1, welcomes)
}

func TestVerify_RejectsGarbageToken(t *testing.T) {
	f := newOnboardingFixture(t)

	_, _, err := f.svc.Verify(context.Background(), "not-a-token")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestLogin_RequiresVerifiedEmail(t *testing.T) {
	f := newOnboardingFixture(t)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	_, _, err = f.svc.Login(context.Background(), "alice@example.com", "Secret123")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	_, _, err = f.svc.Verify(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)

	user, tokens, err := f.svc.Login(context.Background(), "alice@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)
	assert.NotEmpty(t, tokens.AccessToken)

	_, _, err = f.svc.Login(context.Background(), "alice@example.com", "WrongPass1")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestRefresh_IssuesNewAccessToken(t *testing.T) {
	f := newOnboardingFixture(t)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	pair, err := f.svc.Refresh(context.Background(), res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, res.Tokens.RefreshToken, pair.RefreshToken)

	_, err = f.svc.Refresh(context.Background(), "bogus")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestUpdatePassword(t *testing.T) {
	f := newOnboardingFixture(t)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	err = f.svc.UpdatePassword(context.Background(), res.User.ID, "WrongPass1", "NewSecret123")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	err = f.svc.UpdatePassword(context.Background(), res.User.ID, "Secret123", "NewSecret123")
	require.NoError(t, err)

	stored, err := f.users.GetByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("NewSecret123")))
}

func TestForgotPassword(t *testing.T) {
	f := newOnboardingFixture(t)

	// Unknown emails succeed silently.
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Len(t, f.mail.Messages(), 0)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	oldHash := res.User.PasswordHash

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))

	stored, err := f.users.GetByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, stored.PasswordHash)

	msg, ok := f.mail.Last()
	require.True(t, ok)
	assert.Contains(t, msg.Subject, "temporary")
}

func TestUpdateProfile_MergesAndValidates(t *testing.T) {
	f := newOnboardingFixture(t)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	badPhone := "12345"
	_, err = f.svc.UpdateProfile(context.Background(), res.User.ID, UpdateProfileInput{Phone: &badPhone})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "phone")

	newPhone := "0499999999"
	newFirst := "Alicia"
	user, err := f.svc.UpdateProfile(context.Background(), res.User.ID, UpdateProfileInput{
		FirstName: &newFirst,
		Phone:     &newPhone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", user.FirstName)
	assert.Equal(t, "0499999999", user.Phone)
	assert.Equal(t, 1, f.proc.CallCount("UpdateAccount"))
}

func TestUpdateProfile_ReplacesDocumentSlotWithoutClobbering(t *testing.T) {
	f := newOnboardingFixture(t)

	input := validRegisterInput()
	input.DocumentBack = &FileUpload{Filename: "back.png", ContentType: "image/png", Size: 4, Data: []byte("back")}
	res, err := f.svc.Register(context.Background(), input)
	require.NoError(t, err)
	oldFront := res.User.Documents.FrontKey
	oldBack := res.User.Documents.BackKey

	user, err := f.svc.UpdateProfile(context.Background(), res.User.ID, UpdateProfileInput{
		DocumentFront: &FileUpload{Filename: "front2.pdf", ContentType: "application/pdf", Size: 4, Data: []byte("new!")},
	})
	require.NoError(t, err)

	assert.NotEqual(t, oldFront, user.Documents.FrontKey)
	assert.Equal(t, oldBack, user.Documents.BackKey, "untouched slots stay as they were")

	_, ok := f.store.Get(oldFront)
	assert.False(t, ok, "replaced document is removed from storage")
	_, ok = f.store.Get(user.Documents.FrontKey)
	assert.True(t, ok)
}

func TestDeleteAccount_RemovesEventsThenUser(t *testing.T) {
	f := newOnboardingFixture(t)

	res, err := f.svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.events.Create(context.Background(), &domain.Event{
			OwnerID: res.User.ID,
			Name:    "party",
			Date:    time.Now().UTC(),
		}))
	}

	require.NoError(t, f.svc.DeleteAccount(context.Background(), res.User.ID))

	assert.Equal(t, 0, f.users.count())
	remaining, err := f.events.ListByOwner(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 0)
	assert.Equal(t, 1, f.proc.CallCount("DeleteAccount"))
	assert.Equal(t, 1, f.proc.CallCount("ListBankAccounts"))
}
