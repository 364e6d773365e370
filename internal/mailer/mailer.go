package mailer

import "context"

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer defines the interface for sending transactional email.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
