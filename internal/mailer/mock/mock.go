// Package mock provides a recording mailer for development and tests.
package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/giftflow/giftflow/internal/mailer"
)

// Mailer records sent messages instead of delivering them.
type Mailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	logger   *slog.Logger

	// Fail makes every Send return this error.
	Fail error
}

// New creates a new recording mailer.
func New(logger *slog.Logger) *Mailer {
	return &Mailer{logger: logger}
}

// Send records the message and logs it.
func (m *Mailer) Send(ctx context.Context, msg *mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail != nil {
		return m.Fail
	}

	m.messages = append(m.messages, *msg)
	m.logger.InfoContext(ctx, "mock mailer: email recorded",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *Mailer) Messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]mailer.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Last returns the most recent message, if any.
func (m *Mailer) Last() (mailer.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.messages) == 0 {
		return mailer.Message{}, false
	}
	return m.messages[len(m.messages)-1], true
}
