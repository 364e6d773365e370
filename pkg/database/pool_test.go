package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffWait_StaysWithinJitterBand(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := connectBaseWait << attempt
		lo := time.Duration(float64(base) * (1 - connectJitter))
		hi := time.Duration(float64(base) * (1 + connectJitter))

		for i := 0; i < 20; i++ {
			d := backoffWait(attempt)
			assert.GreaterOrEqual(t, d, lo, "attempt %d", attempt)
			assert.LessOrEqual(t, d, hi, "attempt %d", attempt)
		}
	}
}

func TestBackoffWait_GrowsPerAttempt(t *testing.T) {
	const n = 100
	var sums [3]time.Duration
	for attempt := 0; attempt < 3; attempt++ {
		for i := 0; i < n; i++ {
			sums[attempt] += backoffWait(attempt)
		}
	}
	assert.Less(t, sums[0], sums[1])
	assert.Less(t, sums[1], sums[2])
}

func TestBackoffWait_NegativeAttemptClamped(t *testing.T) {
	d := backoffWait(-5)
	assert.Greater(t, d, time.Duration(0))
	assert.Less(t, d, 2*time.Second)
}

type errStr string

func (e errStr) Error() string { return string(e) }

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.False(t, isConnectionError(errStr("syntax error at or near")))
	assert.False(t, isConnectionError(errStr("duplicate key value violates unique constraint")))

	transient := []string{
		"dial tcp 127.0.0.1:5432: connection refused",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"EOF",
		"could not connect to server",
	}
	for _, msg := range transient {
		assert.True(t, isConnectionError(errStr(msg)), msg)
	}
}
