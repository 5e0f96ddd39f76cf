package strategy

import (
	"errors"
	"fmt"
	"time"

	"deepbook-mm/order"
)

// Params 报价引擎的全部可调参数，可通过配置文件热更新。
type Params struct {
	BaseSpread       float64       `yaml:"baseSpread"`       // 基础价差，百分比（0.025 即 0.025%）
	MaxVolatility    float64       `yaml:"maxVolatility"`    // 超过该波动率不报价
	DecayDivisor     float64       `yaml:"decayDivisor"`     // 波动率放大分母
	MaxVolMultiplier float64       `yaml:"maxVolMultiplier"` // 价差乘数上限
	SkewLow          float64       `yaml:"skewLow"`          // base/quote 平衡区间下沿
	SkewHigh         float64       `yaml:"skewHigh"`         // base/quote 平衡区间上沿
	SkewCap          float64       `yaml:"skewCap"`          // 库存倾斜乘数上限
	MinDuration      time.Duration `yaml:"minDuration"`
	MaxDuration      time.Duration `yaml:"maxDuration"`
	DriftThreshold   float64       `yaml:"driftThreshold"` // 挂单价相对 mid 的最大偏离
	ExpiryGuard      time.Duration `yaml:"expiryGuard"`    // 距离过期小于该值即撤单
}

// DefaultParams 返回默认参数
func DefaultParams() Params {
	return Params{
		BaseSpread:       0.025,
		MaxVolatility:    0.3,
		DecayDivisor:     0.012,
		MaxVolMultiplier: 20,
		SkewLow:          0.8,
		SkewHigh:         1.2,
		SkewCap:          4,
		MinDuration:      16 * time.Minute,
		MaxDuration:      90 * time.Minute,
		DriftThreshold:   0.01,
		ExpiryGuard:      60 * time.Second,
	}
}

// Validate 检查参数是否可用。
func (p Params) Validate() error {
	var errs []error
	if p.BaseSpread <= 0 || p.BaseSpread >= 100 {
		errs = append(errs, fmt.Errorf("baseSpread must be in (0,100), got %v", p.BaseSpread))
	}
	if p.MaxVolatility <= 0 {
		errs = append(errs, fmt.Errorf("maxVolatility must be > 0"))
	}
	if p.DecayDivisor <= 0 {
		errs = append(errs, fmt.Errorf("decayDivisor must be > 0"))
	}
	if p.MaxVolMultiplier < 1 {
		errs = append(errs, fmt.Errorf("maxVolMultiplier must be >= 1"))
	}
	if p.SkewLow <= 0 || p.SkewHigh < p.SkewLow {
		errs = append(errs, fmt.Errorf("skew band [%v,%v] invalid", p.SkewLow, p.SkewHigh))
	}
	if p.SkewCap < 1 {
		errs = append(errs, fmt.Errorf("skewCap must be >= 1"))
	}
	if p.MinDuration <= 0 || p.MaxDuration < p.MinDuration {
		errs = append(errs, fmt.Errorf("duration band [%s,%s] invalid", p.MinDuration, p.MaxDuration))
	}
	if p.DriftThreshold <= 0 {
		errs = append(errs, fmt.Errorf("driftThreshold must be > 0"))
	}
	if p.ExpiryGuard < 0 {
		errs = append(errs, fmt.Errorf("expiryGuard must be >= 0"))
	}
	// 最宽价差不能把买价压到 0 以下
	if widest := p.BaseSpread * p.MaxVolMultiplier * p.SkewCap; widest >= 100 {
		errs = append(errs, fmt.Errorf("widest spread %.4f%% would cross zero", widest))
	}
	return errors.Join(errs...)
}

// Market 描述交易对的精度与链上价格/数量单位。
type Market struct {
	BaseDecimals  uint8  `yaml:"baseDecimals"`
	QuoteDecimals uint8  `yaml:"quoteDecimals"`
	PriceScale    uint64 `yaml:"priceScale"` // 参考价 1.0 对应的链上价格
	TickSize      uint64 `yaml:"tickSize"`
	LotSize       uint64 `yaml:"lotSize"`
}

// DefaultMarket 返回 SUI/USDC 池的参数。
func DefaultMarket() Market {
	return Market{
		BaseDecimals:  9,
		QuoteDecimals: 6,
		PriceScale:    1_000_000,
		TickSize:      100,
		LotSize:       100_000_000,
	}
}

// BaseScale returns 10^BaseDecimals.
func (m Market) BaseScale() uint64 { return pow10(m.BaseDecimals) }

// QuoteScale returns 10^QuoteDecimals.
func (m Market) QuoteScale() uint64 { return pow10(m.QuoteDecimals) }

// Constraints 池子的 tick/lot 约束，最小下单量为一个 lot
func (m Market) Constraints() order.Constraints {
	return order.Constraints{TickSize: m.TickSize, LotSize: m.LotSize, MinSize: m.LotSize}
}

// Validate 检查精度配置。
func (m Market) Validate() error {
	if m.BaseDecimals > 19 || m.QuoteDecimals > 19 {
		return fmt.Errorf("decimals out of range: base=%d quote=%d", m.BaseDecimals, m.QuoteDecimals)
	}
	if m.PriceScale == 0 || m.TickSize == 0 || m.LotSize == 0 {
		return errors.New("priceScale, tickSize and lotSize must be > 0")
	}
	return nil
}

func pow10(n uint8) uint64 {
	v := uint64(1)
	for i := uint8(0); i < n; i++ {
		v *= 10
	}
	return v
}
