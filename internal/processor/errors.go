package processor

import (
	"errors"
	"fmt"
)

// Error preserves the processor's own error classification so callers can
// surface it without depending on the SDK.
type Error struct {
	Code    string
	Type    string
	Param   string
	Message string
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("processor: %s (%s, param %s): %s", e.Code, e.Type, e.Param, e.Message)
	}
	return fmt.Sprintf("processor: %s (%s): %s", e.Code, e.Type, e.Message)
}

// Transient reports whether the error is worth retrying: rate limits,
// API-side failures, and lock contention. Validation errors are permanent.
func (e *Error) Transient() bool {
	switch e.Type {
	case "api_error", "rate_limit_error":
		return true
	}
	return e.Code == "lock_timeout"
}

// AsError extracts a processor *Error from the chain, if present.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
