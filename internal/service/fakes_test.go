package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/giftflow/giftflow/internal/auth"
	"github.com/giftflow/giftflow/internal/config"
	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/internal/event"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
	pkgkafka "github.com/giftflow/giftflow/pkg/kafka"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testProducer publishes into the void: async writes against an unreachable
// broker fail in the background, and every publish in the services is
// best-effort anyway.
func testProducer() *event.Producer {
	logger := testLogger()
	cfg := pkgkafka.ProducerConfig{
		Brokers:      []string{"localhost:9092"},
		BatchSize:    1,
		BatchTimeout: time.Millisecond,
		Async:        true,
	}
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:            "development",
		Currency:               "aud",
		AccountCountry:         "AU",
		PlatformDescription:    "Giftflow gift collections",
		ProcessorMaxRetries:    3,
		ProcessorTimeoutSecs:   30,
		AcceptanceWindowDays:   7,
		MinimumAge:             18,
		DocFrontMaxSizeMB:      5,
		DocBackMaxSizeMB:       5,
		DocAdditionalMaxSizeMB: 10,
		SignedURLTTLMin:        60,
		PublicBaseURL:          "http://localhost:8080",
	}
}

func testJWT() *auth.JWTManager {
	return auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
}

// --- Fake User Repository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*domain.User

	failUpdate error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	if u.Verified != nil {
		v := *u.Verified
		cp.Verified = &v
	}
	if u.PayoutAccountID != nil {
		id := *u.PayoutAccountID
		cp.PayoutAccountID = &id
	}
	if u.VerificationDetails != nil {
		d := *u.VerificationDetails
		cp.VerificationDetails = &d
	}
	return &cp
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.AlreadyExists("user", "email", user.Email)
		}
	}
	r.seq++
	user.ID = r.seq
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", fmt.Sprintf("%d", id))
	}
	return cloneUser(u), nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (r *fakeUserRepo) GetByPayoutAccountID(_ context.Context, accountID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PayoutAccountID != nil && *u.PayoutAccountID == accountID {
			return cloneUser(u), nil
		}
	}
	return nil, apperrors.NotFound("user", accountID)
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.users[user.ID]; !ok {
		return apperrors.NotFound("user", fmt.Sprintf("%d", user.ID))
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return apperrors.NotFound("user", fmt.Sprintf("%d", id))
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// --- Fake Event Repository ---

type fakeEventRepo struct {
	mu     sync.Mutex
	seq    int64
	events map[int64]*domain.Event
	users  *fakeUserRepo
}

func newFakeEventRepo(users *fakeUserRepo) *fakeEventRepo {
	return &fakeEventRepo{events: make(map[int64]*domain.Event), users: users}
}

func (r *fakeEventRepo) Create(_ context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.ID = r.seq
	cp := *e
	r.events[e.ID] = &cp
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	r.mu.Lock()
	e, ok := r.events[id]
	if !ok {
		r.mu.Unlock()
		return nil, apperrors.NotFound("event", fmt.Sprintf("%d", id))
	}
	cp := *e
	r.mu.Unlock()

	if r.users != nil {
		if owner, err := r.users.GetByID(ctx, cp.OwnerID); err == nil {
			cp.Owner = owner
		}
	}
	return &cp, nil
}

func (r *fakeEventRepo) List(_ context.Context, limit, offset int) ([]domain.Event, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]domain.Event, 0, len(r.events))
	for _, e := range r.events {
		all = append(all, *e)
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeEventRepo) ListByOwner(_ context.Context, ownerID int64) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Event{}
	for _, e := range r.events {
		if e.OwnerID == ownerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Update(_ context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[e.ID]
	if !ok || stored.OwnerID != e.OwnerID {
		return apperrors.NotFound("event", fmt.Sprintf("%d", e.ID))
	}
	cp := *e
	cp.AmountCollected = stored.AmountCollected
	r.events[e.ID] = &cp
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.OwnerID != ownerID {
		return apperrors.NotFound("event", fmt.Sprintf("%d", id))
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) DeleteByOwner(_ context.Context, ownerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.events {
		if e.OwnerID == ownerID {
			delete(r.events, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeEventRepo) collected(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.events[id]; ok {
		return e.AmountCollected
	}
	return 0
}

// --- Fake Payment Repository ---

type fakePaymentRepo struct {
	mu       sync.Mutex
	seq      int64
	payments map[int64]*domain.Payment
	events   *fakeEventRepo
}

func newFakePaymentRepo(events *fakeEventRepo) *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[int64]*domain.Payment), events: events}
}

func (r *fakePaymentRepo) Record(_ context.Context, payment *domain.Payment, principal int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events.mu.Lock()
	defer r.events.mu.Unlock()

	e, ok := r.events.events[payment.EventID]
	if !ok {
		return apperrors.NotFound("event", fmt.Sprintf("%d", payment.EventID))
	}

	r.seq++
	payment.ID = r.seq
	cp := *payment
	r.payments[payment.ID] = &cp
	e.AmountCollected += principal
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	r.mu.Lock()
	p, ok := r.payments[id]
	if !ok {
		r.mu.Unlock()
		return nil, apperrors.NotFound("payment", fmt.Sprintf("%d", id))
	}
	cp := *p
	r.mu.Unlock()

	if e, err := r.events.GetByID(ctx, cp.EventID); err == nil {
		cp.Event = e
	}
	return &cp, nil
}

func (r *fakePaymentRepo) ListByEvent(_ context.Context, eventID int64, limit, offset int) ([]domain.Payment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []domain.Payment{}
	for _, p := range r.payments {
		if p.EventID == eventID {
			all = append(all, *p)
		}
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakePaymentRepo) SummaryForUser(ctx context.Context, userID int64, email string) (*domain.PaymentSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := &domain.PaymentSummary{}
	owned := make(map[int64]bool)
	r.events.mu.Lock()
	for id, e := range r.events.events {
		if e.OwnerID == userID {
			owned[id] = true
		}
	}
	r.events.mu.Unlock()

	for _, p := range r.payments {
		if owned[p.EventID] {
			summary.ReceivedTotal += p.GiftAmount
			summary.ReceivedCount++
		}
		if p.SenderEmail == email {
			summary.SentTotal += p.GiftAmount
			summary.SentCount++
		}
	}
	return summary, nil
}
