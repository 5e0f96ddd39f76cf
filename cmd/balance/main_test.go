package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepbook-mm/market"
	"deepbook-mm/order"
	"deepbook-mm/strategy"
)

type fakeReader struct {
	balances strategy.Balances
	depth    market.Depth
	orders   []order.RestingOrder
	depthErr error
}

func (f *fakeReader) Balances(context.Context) (strategy.Balances, error) { return f.balances, nil }
func (f *fakeReader) BestBidAsk(context.Context) (market.Depth, error)    { return f.depth, f.depthErr }
func (f *fakeReader) OpenOrders(context.Context) ([]order.RestingOrder, error) {
	return f.orders, nil
}

func TestReport(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	r := &fakeReader{
		balances: strategy.Balances{BaseAvailable: 1_500_000_000, QuoteAvailable: 2_000_000_000, QuoteLocked: 5},
		depth:    market.Depth{Bid: 999_000, Ask: 1_001_000},
		orders: []order.RestingOrder{{
			ID: 9, Price: 1_009_300, Quantity: 1_000_000_000, OriginalQuantity: 1_000_000_000,
			Side: order.SideAsk, ExpireTimestamp: uint64(now.Add(90 * time.Minute).UnixMilli()),
		}},
	}

	var out bytes.Buffer
	require.NoError(t, report(context.Background(), r, strategy.DefaultMarket(), now, &out))
	s := out.String()
	assert.Contains(t, s, "base  available=1.500000000 locked=0.000000000")
	assert.Contains(t, s, "quote available=2000.000000 locked=0.000005")
	assert.Contains(t, s, "best bid=0.999000 ask=1.001000")
	assert.Contains(t, s, "order 9 ASK price=1.009300 qty=1.000000000/1.000000000 expiresIn=1h30m0s")
}

func TestReport_NoOrdersAndErrors(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, report(context.Background(), &fakeReader{}, strategy.DefaultMarket(), time.Now(), &out))
	assert.Contains(t, out.String(), "no open orders")

	err := report(context.Background(), &fakeReader{depthErr: errors.New("rpc down")}, strategy.DefaultMarket(), time.Now(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "best bid/ask")
}
