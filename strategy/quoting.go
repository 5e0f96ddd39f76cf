package strategy

import (
	"math"
	"time"

	"deepbook-mm/market"
)

// Balances 账户在池子中的余额（链上最小单位）。
type Balances struct {
	BaseAvailable  uint64 `json:"base_available"`
	BaseLocked     uint64 `json:"base_locked"`
	QuoteAvailable uint64 `json:"quote_available"`
	QuoteLocked    uint64 `json:"quote_locked"`
}

// HasLocked reports whether any funds are tied up in resting orders.
func (b Balances) HasLocked() bool {
	return b.BaseLocked > 0 || b.QuoteLocked > 0
}

// Decision is one bid/ask pair to place. Prices are on-chain price units,
// quantities are base asset units. A zero quantity means that side is skipped.
type Decision struct {
	AskPrice    uint64
	AskQuantity uint64
	BidPrice    uint64
	BidQuantity uint64
	Duration    time.Duration

	// 以下字段用于日志与指标
	Spread        float64
	AskSpread     float64
	BidSpread     float64
	BaseExposure  uint64 // 以整数报价币计
	QuoteExposure uint64
}

// Exposure 以整数报价币单位计算两侧敞口。
func Exposure(b Balances, price float64, m Market) (base, quote uint64) {
	// 先转 float64 再相加，避免 u64 溢出回绕
	base = toUint64((float64(b.BaseAvailable)+float64(b.BaseLocked))*price) / m.BaseScale()
	quote = toUint64((float64(b.QuoteAvailable) + float64(b.QuoteLocked)) / float64(m.QuoteScale()))
	return base, quote
}

// Decide turns balances, reference price, fill activity and volatility into a
// quote pair. The second return value is false when nothing should be placed.
func Decide(b Balances, price float64, fills market.FillStats, volatility float64, m Market, p Params) (Decision, bool) {
	baseExp, quoteExp := Exposure(b, price, m)
	total := baseExp + quoteExp

	if b.HasLocked() {
		return Decision{}, false
	}
	if volatility > p.MaxVolatility {
		return Decision{}, false
	}
	if total == 0 || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return Decision{}, false
	}

	fillRatio := float64(fills.FilledTotal) / float64(total)
	decay := 1.0
	if fills.FilledPerSecond > total {
		decay = fillRatio
	}
	spread := p.BaseSpread * SpreadMultiplier(volatility, decay, p)

	askSpread, bidSpread := spread, spread
	balanced := InBand(baseExp, quoteExp, p)
	if !balanced {
		switch {
		case quoteExp > baseExp:
			// 报价币偏多：卖出 base 会进一步放大失衡，加宽卖价
			askSpread *= SkewMultiplier(quoteExp, baseExp, p)
		case baseExp > quoteExp:
			bidSpread *= SkewMultiplier(baseExp, quoteExp, p)
		}
	}

	askPx := price * (1 + askSpread/100)
	bidPx := price * (1 - bidSpread/100)

	c := m.Constraints()
	d := Decision{
		AskPrice:      c.TruncatePrice(toUint64(askPx * float64(m.PriceScale))),
		Duration:      OrderDuration(fillRatio, p),
		Spread:        spread,
		AskSpread:     askSpread,
		BidSpread:     bidSpread,
		BaseExposure:  baseExp,
		QuoteExposure: quoteExp,
	}
	if bidPx > 0 {
		d.BidPrice = c.TruncatePrice(toUint64(bidPx * float64(m.PriceScale)))
	}

	rawAsk := c.TruncateQty(b.BaseAvailable)
	rawBid := uint64(0)
	if d.BidPrice > 0 {
		quoteUnits := float64(b.QuoteAvailable) / float64(m.QuoteScale())
		rawBid = c.TruncateQty(toUint64(quoteUnits / bidPx * float64(m.BaseScale())))
	}

	d.AskQuantity, d.BidQuantity = rawAsk, rawBid
	if !balanced {
		switch {
		case baseExp > quoteExp:
			d.AskQuantity = c.TruncateQty(satSub(rawAsk, rawBid) / 2)
		case quoteExp > baseExp:
			d.BidQuantity = c.TruncateQty(satSub(rawBid, rawAsk) / 2)
		}
	}
	if d.AskPrice == 0 {
		d.AskQuantity = 0
	}
	if d.BidPrice == 0 {
		d.BidQuantity = 0
	}

	if d.AskQuantity == 0 && d.BidQuantity == 0 {
		return Decision{}, false
	}
	return d, true
}

// SpreadMultiplier = min(MaxVolMultiplier, 1 + vol/(DecayDivisor*decay)).
func SpreadMultiplier(volatility, decay float64, p Params) float64 {
	if decay <= 0 || math.IsNaN(decay) {
		decay = 1
	}
	return math.Min(p.MaxVolMultiplier, 1+volatility/(p.DecayDivisor*decay))
}

// InBand reports whether base/quote exposure lies inside [SkewLow, SkewHigh].
func InBand(base, quote uint64, p Params) bool {
	if quote == 0 {
		return base == 0
	}
	ratio := float64(base) / float64(quote)
	return ratio >= p.SkewLow && ratio <= p.SkewHigh
}

// SkewMultiplier 失衡侧价差乘数，(larger+1)/(smaller+1) 且不超过 SkewCap。
func SkewMultiplier(larger, smaller uint64, p Params) float64 {
	return math.Min(p.SkewCap, (float64(larger)+1)/(float64(smaller)+1))
}

// OrderDuration 成交越活跃挂单时间越短：MaxDuration/fillRatio，限制在 [Min, Max]。
func OrderDuration(fillRatio float64, p Params) time.Duration {
	if fillRatio <= 0 || math.IsNaN(fillRatio) {
		return p.MaxDuration
	}
	d := float64(p.MaxDuration) / fillRatio
	if d > float64(p.MaxDuration) {
		return p.MaxDuration
	}
	if d < float64(p.MinDuration) {
		return p.MinDuration
	}
	return time.Duration(d)
}

func satSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

func toUint64(f float64) uint64 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxUint64:
		return math.MaxUint64
	}
	return uint64(f)
}
