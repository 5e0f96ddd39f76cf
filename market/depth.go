package market

// Depth 保存链上订单簿的最优买/卖价（链上价格单位），0 表示该侧为空。
type Depth struct {
	Bid uint64
	Ask uint64
}

// Mid 返回中间价；任一侧缺失时第二个返回值为 false。
func (d Depth) Mid() (uint64, bool) {
	if d.Bid == 0 || d.Ask == 0 {
		return 0, false
	}
	return (d.Bid + d.Ask) / 2, true
}
