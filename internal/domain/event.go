package domain

import (
	"time"
)

// Event represents a gift-collecting occasion owned by a user.
type Event struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	ImageKey    string    `json:"-"`
	ImageURL    string    `json:"image_url,omitempty"`
	Slug        string    `json:"slug"`

	// AmountCollected is the running total of recorded gift principal in
	// whole dollars. It is only ever incremented by payment recording.
	AmountCollected int64 `json:"amount_collected"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Owner is populated on reads that join the owning user.
	Owner *User `json:"owner,omitempty"`
}

// AcceptingGifts reports whether the event may still receive gifts at the
// given instant. The window is anchored to when the event was created, not
// its scheduled date: gifting closes once the event has existed longer than
// the window, even if the occasion itself is still in the future.
func (e *Event) AcceptingGifts(now time.Time, window time.Duration) bool {
	return now.Sub(e.CreatedAt) <= window
}
