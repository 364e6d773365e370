package domain

import (
	"time"
)

// Payment is one recorded gift in the ledger. GiftAmount is the principal
// in whole dollars, rounded down; GiftFee is the platform fee tracked
// separately and never folded into the principal.
type Payment struct {
	ID          int64     `json:"id"`
	EventID     int64     `json:"event_id"`
	GiftAmount  int64     `json:"gift_amount"`
	GiftFee     float64   `json:"gift_fee"`
	SenderName  string    `json:"sender_name"`
	Message     string    `json:"message,omitempty"`
	SenderEmail string    `json:"sender_email,omitempty"`
	Country     string    `json:"country,omitempty"`
	IntentID    string    `json:"intent_id"`
	CreatedAt   time.Time `json:"created_at"`

	// Event is populated on reads that join the event.
	Event *Event `json:"event,omitempty"`
}

// PaymentSummary aggregates a user's gift activity: gifts received across
// their own events and gifts they sent (matched by sender email).
type PaymentSummary struct {
	ReceivedTotal int64 `json:"received_total"`
	ReceivedCount int64 `json:"received_count"`
	SentTotal     int64 `json:"sent_total"`
	SentCount     int64 `json:"sent_count"`
}
