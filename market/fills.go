package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillEvent is one maker fill observed on the pool, in on-chain units.
type FillEvent struct {
	Price         uint64
	BaseFilled    uint64
	BaseRemaining uint64
	Timestamp     time.Time
}

// FillStats summarizes the trailing window of fill events. Volumes are expressed in
// whole quote units (e.g. USDC), FilledPerSecond is quote volume per second.
type FillStats struct {
	DurationSeconds uint64 `json:"duration_seconds"`
	FilledTotal     uint64 `json:"filled_total"`
	UnfilledTotal   uint64 `json:"unfilled_total"`
	FilledPerSecond uint64 `json:"filled_per_second"`
	SampleCount     uint64 `json:"sample_count"`
}

// ComputeFillStats rebuilds the summary from events ordered newest first.
// priceScale is the on-chain price multiplier, baseScale the base asset's 10^decimals.
// Each event's notional is truncated to whole quote units before summing.
func ComputeFillStats(events []FillEvent, now time.Time, priceScale, baseScale uint64) FillStats {
	if len(events) == 0 || priceScale == 0 || baseScale == 0 {
		return FillStats{}
	}
	oldest := events[len(events)-1].Timestamp
	duration := uint64(0)
	if now.After(oldest) {
		duration = uint64(now.Sub(oldest) / time.Second)
	}

	divisor := decimal.NewFromUint64(priceScale).Mul(decimal.NewFromUint64(baseScale))
	filled := decimal.Zero
	unfilled := decimal.Zero
	for _, ev := range events {
		price := decimal.NewFromUint64(ev.Price)
		filled = filled.Add(decimal.NewFromUint64(ev.BaseFilled).Mul(price).Div(divisor).Floor())
		unfilled = unfilled.Add(decimal.NewFromUint64(ev.BaseRemaining).Mul(price).Div(divisor).Floor())
	}

	stats := FillStats{
		DurationSeconds: duration,
		FilledTotal:     filled.BigInt().Uint64(),
		UnfilledTotal:   unfilled.BigInt().Uint64(),
		SampleCount:     uint64(len(events)),
	}
	// a window shorter than one second counts as one second
	perSecondDivisor := duration
	if perSecondDivisor == 0 {
		perSecondDivisor = 1
	}
	stats.FilledPerSecond = stats.FilledTotal / perSecondDivisor
	return stats
}
