package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	assert.False(t, now.Before(before))

	past := time.Now().Add(-time.Second)
	assert.GreaterOrEqual(t, clock.Since(past), time.Second)
}

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewManualClock(start)
	assert.True(t, clock.Now().Equal(start))

	clock.Advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, clock.Since(start))

	clock.Sleep(10 * time.Millisecond)
	assert.Equal(t, 3010*time.Millisecond, clock.Since(start))
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, clock.Sleeps())

	later := start.Add(time.Hour)
	clock.Set(later)
	assert.True(t, clock.Now().Equal(later))
}

func TestClockInterface(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = (*ManualClock)(nil)
}
