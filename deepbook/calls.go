package deepbook

import (
	"fmt"

	"deepbook-mm/order"
	"deepbook-mm/sui"
)

// selfMatchingCancelOldest is the only self matching prevention mode clob_v2 accepts.
const selfMatchingCancelOldest uint8 = 0

// PlaceLimitOrder appends clob_v2::place_limit_order.
func PlaceLimitOrder(b *sui.PTBBuilder, pool Pool, acct sui.ObjectRef, o order.LimitOrder) error {
	poolArg, err := b.Object(pool.arg(true))
	if err != nil {
		return err
	}
	clockArg, err := b.Object(sui.Shared(clockAddr, 1, false))
	if err != nil {
		return err
	}
	capArg, err := b.Object(sui.Owned(acct))
	if err != nil {
		return err
	}
	if o.ExpireAt.IsZero() {
		return fmt.Errorf("place_limit_order: missing expiry")
	}
	args := []sui.Argument{
		poolArg,
		b.Pure(sui.PureU64(o.ClientOrderID)),
		b.Pure(sui.PureU64(o.Price)),
		b.Pure(sui.PureU64(o.Quantity)),
		b.Pure(sui.PureU8(selfMatchingCancelOldest)),
		b.Pure(sui.PureBool(o.Side.IsBid())),
		b.Pure(sui.PureU64(uint64(o.ExpireAt.UnixMilli()))),
		b.Pure(sui.PureU8(uint8(o.Restriction))),
		clockArg,
		capArg,
	}
	b.MoveCall(packageAddr, ClobModule, "place_limit_order", pool.TypeArgs(), args)
	return nil
}

// CancelAllOrders appends clob_v2::cancel_all_orders.
func CancelAllOrders(b *sui.PTBBuilder, pool Pool, acct sui.ObjectRef) error {
	poolArg, err := b.Object(pool.arg(true))
	if err != nil {
		return err
	}
	capArg, err := b.Object(sui.Owned(acct))
	if err != nil {
		return err
	}
	b.MoveCall(packageAddr, ClobModule, "cancel_all_orders", pool.TypeArgs(), []sui.Argument{poolArg, capArg})
	return nil
}

// AccountBalance appends clob_v2::account_balance; returns (base avail, base locked, quote avail, quote locked).
func AccountBalance(b *sui.PTBBuilder, pool Pool, acct sui.ObjectRef) error {
	poolArg, err := b.Object(pool.arg(false))
	if err != nil {
		return err
	}
	capArg, err := b.Object(sui.Owned(acct))
	if err != nil {
		return err
	}
	b.MoveCall(packageAddr, ClobModule, "account_balance", pool.TypeArgs(), []sui.Argument{poolArg, capArg})
	return nil
}

// GetMarketPrice appends clob_v2::get_market_price; returns (Option<best bid>, Option<best ask>).
func GetMarketPrice(b *sui.PTBBuilder, pool Pool) error {
	poolArg, err := b.Object(pool.arg(false))
	if err != nil {
		return err
	}
	b.MoveCall(packageAddr, ClobModule, "get_market_price", pool.TypeArgs(), []sui.Argument{poolArg})
	return nil
}

// ListOpenOrders appends clob_v2::list_open_orders; returns vector<Order>.
func ListOpenOrders(b *sui.PTBBuilder, pool Pool, acct sui.ObjectRef) error {
	poolArg, err := b.Object(pool.arg(false))
	if err != nil {
		return err
	}
	capArg, err := b.Object(sui.Owned(acct))
	if err != nil {
		return err
	}
	b.MoveCall(packageAddr, ClobModule, "list_open_orders", pool.TypeArgs(), []sui.Argument{poolArg, capArg})
	return nil
}
