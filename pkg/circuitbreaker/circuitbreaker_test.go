package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := New(3, time.Hour)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	}
	assert.Equal(t, StateOpen, b.State())

	// Rejected without invoking the function.
	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := New(3, time.Hour)
	boom := errors.New("boom")

	require.Error(t, b.Do(func() error { return boom }))
	require.Error(t, b.Do(func() error { return boom }))
	require.NoError(t, b.Do(func() error { return nil }))

	// The counter restarted; two more failures do not trip it.
	require.Error(t, b.Do(func() error { return boom }))
	require.Error(t, b.Do(func() error { return boom }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	boom := errors.New("boom")

	require.Error(t, b.Do(func() error { return boom }))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)

	// A failed probe re-opens immediately.
	require.Error(t, b.Do(func() error { return boom }))
	assert.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)

	// A successful probe closes the circuit.
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}
