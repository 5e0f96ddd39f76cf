package deepbook

import (
	"fmt"

	"deepbook-mm/market"
	"deepbook-mm/order"
	"deepbook-mm/strategy"
	"deepbook-mm/sui"
)

func returnValues(res sui.DevInspectResults, cmd, want int) ([]sui.ReturnValue, error) {
	if cmd >= len(res.Results) {
		return nil, fmt.Errorf("devInspect: missing result for command %d", cmd)
	}
	vals := res.Results[cmd].ReturnValues
	if len(vals) != want {
		return nil, fmt.Errorf("devInspect: command %d returned %d values, want %d", cmd, len(vals), want)
	}
	return vals, nil
}

// DecodeBalances 解析 account_balance 的四个 u64。
func DecodeBalances(vals []sui.ReturnValue) (strategy.Balances, error) {
	if len(vals) != 4 {
		return strategy.Balances{}, fmt.Errorf("account_balance: want 4 values, got %d", len(vals))
	}
	var out [4]uint64
	for i, v := range vals {
		n, err := sui.NewDecoder(v.Bytes).U64()
		if err != nil {
			return strategy.Balances{}, fmt.Errorf("account_balance[%d]: %w", i, err)
		}
		out[i] = n
	}
	return strategy.Balances{
		BaseAvailable:  out[0],
		BaseLocked:     out[1],
		QuoteAvailable: out[2],
		QuoteLocked:    out[3],
	}, nil
}

// DecodeMarketPrice 解析 get_market_price 的 (Option<u64>, Option<u64>)，空侧记为 0。
func DecodeMarketPrice(vals []sui.ReturnValue) (market.Depth, error) {
	if len(vals) != 2 {
		return market.Depth{}, fmt.Errorf("get_market_price: want 2 values, got %d", len(vals))
	}
	var d market.Depth
	bid, _, err := sui.NewDecoder(vals[0].Bytes).OptionU64()
	if err != nil {
		return d, fmt.Errorf("get_market_price bid: %w", err)
	}
	ask, _, err := sui.NewDecoder(vals[1].Bytes).OptionU64()
	if err != nil {
		return d, fmt.Errorf("get_market_price ask: %w", err)
	}
	d.Bid, d.Ask = bid, ask
	return d, nil
}

// DecodeOrders 解析 list_open_orders 返回的 vector<Order>。
func DecodeOrders(b []byte) ([]order.RestingOrder, error) {
	d := sui.NewDecoder(b)
	n, err := d.ULEB128()
	if err != nil {
		return nil, fmt.Errorf("list_open_orders: %w", err)
	}
	orders := make([]order.RestingOrder, 0, n)
	for i := uint64(0); i < n; i++ {
		o, err := decodeOrder(d)
		if err != nil {
			return nil, fmt.Errorf("list_open_orders[%d]: %w", i, err)
		}
		orders = append(orders, o)
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("list_open_orders: %d trailing bytes", d.Remaining())
	}
	return orders, nil
}

func decodeOrder(d *sui.Decoder) (order.RestingOrder, error) {
	var o order.RestingOrder
	var err error
	if o.ID, err = d.U64(); err != nil {
		return o, err
	}
	if o.ClientOrderID, err = d.U64(); err != nil {
		return o, err
	}
	if o.Price, err = d.U64(); err != nil {
		return o, err
	}
	if o.OriginalQuantity, err = d.U64(); err != nil {
		return o, err
	}
	if o.Quantity, err = d.U64(); err != nil {
		return o, err
	}
	isBid, err := d.Bool()
	if err != nil {
		return o, err
	}
	if isBid {
		o.Side = order.SideBid
	}
	owner, err := d.Address()
	if err != nil {
		return o, err
	}
	o.Owner = owner.String()
	if o.ExpireTimestamp, err = d.U64(); err != nil {
		return o, err
	}
	// self_matching_prevention
	if _, err = d.U8(); err != nil {
		return o, err
	}
	return o, nil
}
