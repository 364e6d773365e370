package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinels_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrForbidden, ErrInternal, ErrConflict, ErrServiceUnavail,
		ErrPaymentFailed, ErrExpired,
	}
	for i := range sentinels {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotErrorIs(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	bare := &AppError{Code: "NOT_FOUND", Message: "event not found"}
	assert.Equal(t, "NOT_FOUND: event not found", bare.Error())
	assert.Nil(t, bare.Unwrap())

	wrapped := &AppError{Code: "INTERNAL_ERROR", Message: "lookup failed", Err: fmt.Errorf("db connection lost")}
	assert.Contains(t, wrapped.Error(), "INTERNAL_ERROR")
	assert.Contains(t, wrapped.Error(), "lookup failed")
	assert.Contains(t, wrapped.Error(), "db connection lost")
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name         string
		err          *AppError
		wantCode     string
		wantStatus   int
		wantSentinel error
	}{
		{"not found", NotFound("event", "31"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("user", "email", "amira@example.com"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("name is required"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("invalid token"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("not your event"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("EMAIL_TAKEN", "email already registered"), "EMAIL_TAKEN", http.StatusConflict, ErrConflict},
		{"gone", Gone("EVENT_EXPIRED", "event date has passed"), "EVENT_EXPIRED", http.StatusGone, ErrExpired},
		{"unprocessable", UnprocessableEntity("PAYMENT_NOT_COMPLETED", "intent not settled"), "PAYMENT_NOT_COMPLETED", http.StatusUnprocessableEntity, ErrInvalidInput},
		{"payment failed", PaymentFailed("card declined"), "PAYMENT_FAILED", http.StatusUnprocessableEntity, ErrPaymentFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.wantSentinel)
		})
	}
}

func TestNotFound_MessageNamesResource(t *testing.T) {
	err := NotFound("event", "31")
	assert.Contains(t, err.Message, "event")
	assert.Contains(t, err.Message, "31")
}

func TestInvalidFields_CarriesFieldDetail(t *testing.T) {
	err := InvalidFields("validation failed", map[string]string{
		"phone":               "must be an Australian mobile number",
		"address.postal_code": "must be a 4-digit postcode",
	})

	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Len(t, err.Fields, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInternal_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("segfault")
	err := Internal(cause)

	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, cause)
}

func TestWrap(t *testing.T) {
	wrapped := Wrap(ErrNotFound, "load event")
	assert.Contains(t, wrapped.Error(), "load event")
	assert.ErrorIs(t, wrapped, ErrNotFound)
}

func TestHTTPStatus(t *testing.T) {
	// AppError status wins regardless of the wrapped sentinel.
	assert.Equal(t, http.StatusGone, HTTPStatus(Gone("EVENT_EXPIRED", "expired")))

	tests := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrPaymentFailed, http.StatusUnprocessableEntity},
		{ErrExpired, http.StatusGone},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{errors.New("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
	}
}
