package order

import (
	"math"
	"time"
)

// Side is the book side of an order.
type Side uint8

const (
	SideAsk Side = iota
	SideBid
)

func (s Side) String() string {
	if s == SideBid {
		return "BID"
	}
	return "ASK"
}

// IsBid reports whether the order buys the base asset.
func (s Side) IsBid() bool { return s == SideBid }

// Restriction is the DeepBook limit order restriction, encoded as u8 on chain.
type Restriction uint8

const (
	NoRestriction Restriction = iota
	ImmediateOrCancel
	FillOrKill
	// PostOrAbort rejects the order instead of crossing the book.
	PostOrAbort
)

func (r Restriction) String() string {
	switch r {
	case NoRestriction:
		return "NO_RESTRICTION"
	case ImmediateOrCancel:
		return "IMMEDIATE_OR_CANCEL"
	case FillOrKill:
		return "FILL_OR_KILL"
	case PostOrAbort:
		return "POST_OR_ABORT"
	default:
		return "UNKNOWN"
	}
}

// RestingOrder is an open order as reported by the exchange. Prices and quantities
// are on-chain integers; ExpireTimestamp is unix milliseconds.
type RestingOrder struct {
	ID               uint64
	ClientOrderID    uint64
	Price            uint64
	OriginalQuantity uint64
	Quantity         uint64
	Side             Side
	Owner            string
	ExpireTimestamp  uint64
}

// ExpiresIn returns the time left until expiry relative to now; zero or negative once expired.
// Expiries beyond the range of time.Duration (including the chain's no-expiry u64 max)
// saturate to the largest duration.
func (o RestingOrder) ExpiresIn(now time.Time) time.Duration {
	const maxMs = uint64(math.MaxInt64 / int64(time.Millisecond))
	nowMs := uint64(max(now.UnixMilli(), 0))
	if o.ExpireTimestamp <= nowMs {
		return -time.Duration(min(nowMs-o.ExpireTimestamp, maxMs)) * time.Millisecond
	}
	left := o.ExpireTimestamp - nowMs
	if left > maxMs {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(left) * time.Millisecond
}

// LimitOrder is a placement request.
type LimitOrder struct {
	ClientOrderID uint64
	Price         uint64
	Quantity      uint64
	Side          Side
	Restriction   Restriction
	ExpireAt      time.Time
}
