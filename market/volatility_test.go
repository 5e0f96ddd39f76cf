package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolatilityTracker_InsertMostRecentFirst(t *testing.T) {
	tracker := NewVolatilityTracker(5)
	tracker.Insert(100.0)
	tracker.Insert(101.0)
	tracker.Insert(102.0)

	assert.Equal(t, []float64{102.0, 101.0, 100.0}, tracker.Prices())
}

func TestVolatilityTracker_EvictsOldest(t *testing.T) {
	tracker := NewVolatilityTracker(3)
	for i := 0; i < 3; i++ {
		tracker.Insert(100.0 + float64(i))
	}
	require.Equal(t, []float64{102, 101, 100}, tracker.Prices())

	tracker.Insert(103.0)
	assert.Equal(t, 3, tracker.Len())
	assert.Equal(t, []float64{103, 102, 101}, tracker.Prices(), "only the oldest sample is evicted")
}

func TestVolatilityTracker_AbsentUntilFull(t *testing.T) {
	tracker := NewVolatilityTracker(4)
	for i := 0; i < 3; i++ {
		tracker.Insert(1.0 + float64(i)*0.01)
		_, ok := tracker.Compute()
		assert.False(t, ok, "window of %d must not produce a value", tracker.Len())
		assert.False(t, tracker.Ready())
	}
	tracker.Insert(1.03)
	_, ok := tracker.Compute()
	assert.True(t, ok)
	assert.True(t, tracker.Ready())
}

func TestVolatilityTracker_ConstantPricesZero(t *testing.T) {
	tracker := NewVolatilityTracker(10)
	for i := 0; i < 10; i++ {
		tracker.Insert(1.5)
	}
	vol, ok := tracker.Compute()
	require.True(t, ok)
	assert.Equal(t, 0.0, vol)
}

func TestVolatilityTracker_KnownValue(t *testing.T) {
	tracker := NewVolatilityTracker(4)
	for _, p := range []float64{1, 2, 3, 4} {
		tracker.Insert(p)
	}
	vol, ok := tracker.Compute()
	require.True(t, ok)

	// mean 2.5, sample stddev sqrt(5/3)
	want := math.Sqrt(5.0/3.0) / 2.5 * 2
	assert.InDelta(t, want, vol, 1e-12)
}

func TestVolatilityTracker_DefaultLength(t *testing.T) {
	tracker := NewVolatilityTracker(0)
	assert.Equal(t, DefaultVolatilityWindow, tracker.Length())
}
