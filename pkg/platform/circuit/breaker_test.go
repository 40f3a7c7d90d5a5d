package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("alerts")
	assert.Equal(t, "alerts", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("alerts", WithFailureThreshold(3))

	for range 2 {
		unavailable, change := b.RecordFailure()
		assert.False(t, unavailable)
		assert.False(t, change.Opened)
	}
	unavailable, change := b.RecordFailure()
	assert.True(t, unavailable)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())

	// further failures are not a transition
	_, change = b.RecordFailure()
	assert.False(t, change.Opened)
}

func TestSuccessResetsFailureRun(t *testing.T) {
	b := New("alerts", WithFailureThreshold(3))
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestClosesAfterSuccessRun(t *testing.T) {
	b := New("alerts", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	usable, change := b.RecordSuccess()
	assert.False(t, usable)
	assert.False(t, change.Closed)

	// a failure in between restarts the run
	b.RecordFailure()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())

	usable, change = b.RecordSuccess()
	assert.True(t, usable)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestAllowProbesOncePerCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := New("alerts",
		WithFailureThreshold(1),
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow(), "only one probe per cooldown")

	now = now.Add(time.Minute)
	assert.True(t, b.Allow())
}

func TestReset(t *testing.T) {
	b := New("alerts", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}
