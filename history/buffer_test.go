package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferDropsOldestOverCapacity(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(Entry{Timestamp: time.Now(), Data: map[string]any{"n": i}})
	}
	require.Equal(t, 3, b.Len())
	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, 4, latest.Data["n"])
}

func TestRisingEdgeDetectsFalseToTrue(t *testing.T) {
	b := NewBuffer(100)
	now := time.Now()
	b.Append(Entry{Timestamp: now.Add(-300 * time.Millisecond), Data: map[string]any{"S1": false}})
	b.Append(Entry{Timestamp: now.Add(-200 * time.Millisecond), Data: map[string]any{"S1": false}})
	b.Append(Entry{Timestamp: now.Add(-100 * time.Millisecond), Data: map[string]any{"S1": true}})

	assert.True(t, b.RisingEdge("S1", 500*time.Millisecond))
	assert.False(t, b.FallingEdge("S1", 500*time.Millisecond))
}

func TestFallingEdgeDetectsTrueToFalse(t *testing.T) {
	b := NewBuffer(100)
	now := time.Now()
	b.Append(Entry{Timestamp: now.Add(-300 * time.Millisecond), Data: map[string]any{"CS1": true}})
	b.Append(Entry{Timestamp: now.Add(-100 * time.Millisecond), Data: map[string]any{"CS1": false}})

	assert.True(t, b.FallingEdge("CS1", 500*time.Millisecond))
}

func TestRisingEdgeIgnoresSamplesOutsideWindow(t *testing.T) {
	b := NewBuffer(100)
	now := time.Now()
	b.Append(Entry{Timestamp: now.Add(-10 * time.Second), Data: map[string]any{"S1": false}})
	b.Append(Entry{Timestamp: now.Add(-50 * time.Millisecond), Data: map[string]any{"S1": true}})

	assert.False(t, b.RisingEdge("S1", 200*time.Millisecond))
}

func TestExtendedHoldRequiresFullCoverage(t *testing.T) {
	b := NewBuffer(100)
	now := time.Now()
	// Only 300ms of history; asking for a 1s hold must fail regardless of
	// value, since the buffer can't prove the signal held that long.
	b.Append(Entry{Timestamp: now.Add(-300 * time.Millisecond), Data: map[string]any{"M1_Trip": true}})
	b.Append(Entry{Timestamp: now, Data: map[string]any{"M1_Trip": true}})

	assert.False(t, b.ExtendedHold("M1_Trip", true, time.Second))
}

func TestExtendedHoldTrueWhenFullyCovered(t *testing.T) {
	b := NewBuffer(100)
	now := time.Now()
	for i := 12; i >= 0; i-- {
		b.Append(Entry{Timestamp: now.Add(-time.Duration(i) * 100 * time.Millisecond), Data: map[string]any{"M1_Trip": true}})
	}

	assert.True(t, b.ExtendedHold("M1_Trip", true, time.Second))
}

func TestExtendedHoldFalseOnInterruption(t *testing.T) {
	b := NewBuffer(100)
	now := time.Now()
	b.Append(Entry{Timestamp: now.Add(-1100 * time.Millisecond), Data: map[string]any{"M1_Trip": true}})
	b.Append(Entry{Timestamp: now.Add(-600 * time.Millisecond), Data: map[string]any{"M1_Trip": false}})
	b.Append(Entry{Timestamp: now, Data: map[string]any{"M1_Trip": true}})

	assert.False(t, b.ExtendedHold("M1_Trip", true, time.Second))
}

func TestCheckCommsHealthEmptyBufferIsHealthy(t *testing.T) {
	b := NewBuffer(100)
	assert.True(t, b.CheckCommsHealth(3*time.Second))
}

func TestCheckCommsHealthStaleReadsAreUnhealthy(t *testing.T) {
	b := NewBuffer(100)
	b.Append(Entry{Timestamp: time.Now().Add(-10 * time.Second), Data: map[string]any{"VERSION": 7}})
	assert.False(t, b.CheckCommsHealth(3*time.Second))
}

func TestCheckCommsHealthZeroVersionIsUnhealthy(t *testing.T) {
	b := NewBuffer(100)
	now := time.Now()
	b.Append(Entry{Timestamp: now.Add(-1 * time.Second), Data: map[string]any{"VERSION": 0}})
	b.Append(Entry{Timestamp: now, Data: map[string]any{"VERSION": 0}})
	assert.False(t, b.CheckCommsHealth(3*time.Second))
}

func TestCheckCommsHealthNonZeroVersionIsHealthy(t *testing.T) {
	b := NewBuffer(100)
	now := time.Now()
	b.Append(Entry{Timestamp: now.Add(-1 * time.Second), Data: map[string]any{"VERSION": 0}})
	b.Append(Entry{Timestamp: now, Data: map[string]any{"VERSION": 42}})
	assert.True(t, b.CheckCommsHealth(3*time.Second))
}
