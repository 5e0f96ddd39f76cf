package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	testPriceScale = 1_000_000
	testBaseScale  = 1_000_000_000
)

func TestComputeFillStats(t *testing.T) {
	now := time.UnixMilli(1_708_380_400_000)
	events := []FillEvent{
		// 700 SUI filled at 1.7837, 2700 remaining
		{Price: 1_783_700, BaseFilled: 700_000_000_000, BaseRemaining: 2_700_000_000_000, Timestamp: now.Add(-10 * time.Second)},
		// 100 SUI filled at 1.78, 0 remaining
		{Price: 1_780_000, BaseFilled: 100_000_000_000, Timestamp: now.Add(-100 * time.Second)},
	}
	stats := ComputeFillStats(events, now, testPriceScale, testBaseScale)

	assert.Equal(t, uint64(100), stats.DurationSeconds)
	// floor(700*1.7837)=1248, floor(100*1.78)=178
	assert.Equal(t, uint64(1248+178), stats.FilledTotal)
	// floor(2700*1.7837)=4815
	assert.Equal(t, uint64(4815), stats.UnfilledTotal)
	assert.Equal(t, uint64(14), stats.FilledPerSecond)
	assert.Equal(t, uint64(2), stats.SampleCount)
}

func TestComputeFillStatsEmpty(t *testing.T) {
	assert.Equal(t, FillStats{}, ComputeFillStats(nil, time.Now(), testPriceScale, testBaseScale))
}

func TestComputeFillStatsSubSecondWindow(t *testing.T) {
	now := time.UnixMilli(5_000)
	events := []FillEvent{{Price: 2_000_000, BaseFilled: 3_000_000_000, Timestamp: now}}
	stats := ComputeFillStats(events, now, testPriceScale, testBaseScale)

	assert.Equal(t, uint64(0), stats.DurationSeconds)
	assert.Equal(t, uint64(6), stats.FilledTotal)
	assert.Equal(t, uint64(6), stats.FilledPerSecond, "zero-length window is treated as one second")
}
