package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftflow/giftflow/internal/domain"
	memstorage "github.com/giftflow/giftflow/internal/storage/memory"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
)

type eventFixture struct {
	svc    *EventService
	users  *fakeUserRepo
	events *fakeEventRepo
	store  *memstorage.Storage
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()
	users := newFakeUserRepo()
	events := newFakeEventRepo(users)
	store := memstorage.New("http://localhost:8080")
	svc := NewEventService(events, users, store, testProducer(), testConfig(), testLogger())
	return &eventFixture{svc: svc, users: users, events: events, store: store}
}

func (f *eventFixture) seedOwner(t *testing.T) *domain.User {
	t.Helper()
	verified := true
	owner := &domain.User{Email: "owner@example.com", FirstName: "Olivia", Verified: &verified}
	require.NoError(t, f.users.Create(context.Background(), owner))
	return owner
}

func TestEventCreate_SlugAndImage(t *testing.T) {
	f := newEventFixture(t)
	owner := f.seedOwner(t)

	e, err := f.svc.Create(context.Background(), owner.ID, CreateEventInput{
		Name:        "Emma's 30th Birthday!",
		Description: "come celebrate",
		Date:        time.Now().UTC().Add(72 * time.Hour),
		Image:       &FileUpload{Filename: "cover.png", ContentType: "image/png", Size: 3, Data: []byte("img")},
	})
	require.NoError(t, err)

	assert.Contains(t, e.Slug, "emma-s-30th-birthday")
	assert.NotEmpty(t, e.ImageKey)
	assert.Contains(t, e.ImageURL, e.ImageKey)
	assert.Zero(t, e.AmountCollected)

	_, ok := f.store.Get(e.ImageKey)
	assert.True(t, ok)
}

func TestEventCreate_UnknownOwnerFails(t *testing.T) {
	f := newEventFixture(t)

	_, err := f.svc.Create(context.Background(), 99, CreateEventInput{
		Name: "party",
		Date: time.Now().UTC(),
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestEventCreate_RejectsBadImage(t *testing.T) {
	f := newEventFixture(t)
	owner := f.seedOwner(t)

	_, err := f.svc.Create(context.Background(), owner.ID, CreateEventInput{
		Name:  "party",
		Date:  time.Now().UTC(),
		Image: &FileUpload{Filename: "cover.gif", ContentType: "image/gif", Size: 3, Data: []byte("img")},
	})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestEventUpdate_OwnerOnlyAndAmountImmutable(t *testing.T) {
	f := newEventFixture(t)
	owner := f.seedOwner(t)

	e, err := f.svc.Create(context.Background(), owner.ID, CreateEventInput{
		Name: "Housewarming",
		Date: time.Now().UTC().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	// Simulate recorded gifts.
	f.events.events[e.ID].AmountCollected = 120

	newName := "Housewarming Party"
	updated, err := f.svc.Update(context.Background(), owner.ID, e.ID, UpdateEventInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Housewarming Party", updated.Name)
	assert.Equal(t, int64(120), f.events.events[e.ID].AmountCollected, "collected amount survives updates")

	_, err = f.svc.Update(context.Background(), 999, e.ID, UpdateEventInput{Name: &newName})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestEventDelete_OwnerOnlyAndImageCleanup(t *testing.T) {
	f := newEventFixture(t)
	owner := f.seedOwner(t)

	e, err := f.svc.Create(context.Background(), owner.ID, CreateEventInput{
		Name:  "BBQ",
		Date:  time.Now().UTC(),
		Image: &FileUpload{Filename: "bbq.jpg", ContentType: "image/jpeg", Size: 3, Data: []byte("img")},
	})
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), 999, e.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, f.svc.Delete(context.Background(), owner.ID, e.ID))
	_, ok := f.store.Get(e.ImageKey)
	assert.False(t, ok)
}

func TestEventListAndListMine(t *testing.T) {
	f := newEventFixture(t)
	owner := f.seedOwner(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(context.Background(), owner.ID, CreateEventInput{
			Name: "party",
			Date: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	events, total, err := f.svc.List(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, events, 2)

	mine, err := f.svc.ListMine(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	none, err := f.svc.ListMine(context.Background(), 999)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Len(t, none, 0)
}
