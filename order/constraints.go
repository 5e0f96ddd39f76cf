package order

import "fmt"

// Constraints 描述池子的价格步长与数量步长（链上整数单位）。
type Constraints struct {
	TickSize uint64
	LotSize  uint64
	MinSize  uint64
}

// Validate 检查订单价格/数量是否符合精度与最小下单量。
func (c Constraints) Validate(price, qty uint64) error {
	if price == 0 {
		return fmt.Errorf("price must be > 0")
	}
	if c.TickSize > 0 && price%c.TickSize != 0 {
		return fmt.Errorf("price %d not aligned to tickSize %d", price, c.TickSize)
	}
	if c.LotSize > 0 && qty%c.LotSize != 0 {
		return fmt.Errorf("qty %d not aligned to lotSize %d", qty, c.LotSize)
	}
	if qty == 0 || (c.MinSize > 0 && qty < c.MinSize) {
		return fmt.Errorf("qty %d < minSize %d", qty, c.MinSize)
	}
	return nil
}

// TruncatePrice 将价格向下截断到 tick。
func (c Constraints) TruncatePrice(price uint64) uint64 {
	if c.TickSize == 0 {
		return price
	}
	return price / c.TickSize * c.TickSize
}

// TruncateQty 将数量向下截断到 lot。
func (c Constraints) TruncateQty(qty uint64) uint64 {
	if c.LotSize == 0 {
		return qty
	}
	return qty / c.LotSize * c.LotSize
}
