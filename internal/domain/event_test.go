package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const week = 7 * 24 * time.Hour

func TestAcceptingGifts_WithinWindow(t *testing.T) {
	now := time.Now().UTC()
	e := &Event{CreatedAt: now.Add(-3 * 24 * time.Hour)}

	assert.True(t, e.AcceptingGifts(now, week))
}

func TestAcceptingGifts_OlderThanWindow(t *testing.T) {
	now := time.Now().UTC()
	e := &Event{CreatedAt: now.Add(-8 * 24 * time.Hour)}

	assert.False(t, e.AcceptingGifts(now, week))
}

func TestAcceptingGifts_ExactBoundaryStillAccepts(t *testing.T) {
	now := time.Now().UTC()
	e := &Event{CreatedAt: now.Add(-week)}

	assert.True(t, e.AcceptingGifts(now, week))
}

func TestAcceptingGifts_AnchoredToCreationNotDate(t *testing.T) {
	now := time.Now().UTC()

	// A stale listing for a future occasion is closed; a fresh listing for
	// a past occasion is still open.
	stale := &Event{CreatedAt: now.Add(-8 * 24 * time.Hour), Date: now.Add(30 * 24 * time.Hour)}
	assert.False(t, stale.AcceptingGifts(now, week))

	fresh := &Event{CreatedAt: now.Add(-time.Hour), Date: now.Add(-30 * 24 * time.Hour)}
	assert.True(t, fresh.AcceptingGifts(now, week))
}

func TestUserOnboarded(t *testing.T) {
	u := &User{}
	assert.False(t, u.Onboarded())

	empty := ""
	u.PayoutAccountID = &empty
	assert.False(t, u.Onboarded())

	acct := "acct_123"
	u.PayoutAccountID = &acct
	assert.True(t, u.Onboarded())
}

func TestUserIsVerified(t *testing.T) {
	u := &User{}
	assert.False(t, u.IsVerified())

	f := false
	u.Verified = &f
	assert.False(t, u.IsVerified())

	v := true
	u.Verified = &v
	assert.True(t, u.IsVerified())
}
