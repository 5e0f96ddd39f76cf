package monitor

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Orders(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordOrderPlaced("bid")
	m.RecordOrderPlaced("ask")
	m.RecordOrderPlaced("ask")
	m.RecordOrdersCanceled()
	m.RecordOrderFailed("place")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("bid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("ask")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersCanceled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersFailed.WithLabelValues("place")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ordersFailed.WithLabelValues("cancel")))
}

func TestMonitor_RecordRPC(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordRPC("suix_getCoins", 20*time.Millisecond, nil)
	m.RecordRPC("suix_getCoins", 30*time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("suix_getCoins")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcErrors.WithLabelValues("suix_getCoins")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.rpcLatency))
}

func TestMonitor_Gauges(t *testing.T) {
	m := New(DefaultConfig())
	m.UpdateReferencePrice(1.7837)
	m.UpdateVolatility(0.05)
	m.UpdateControllerState(1)
	m.UpdateFillStats(1348, 13)
	m.UpdateBidAsk(997_600, 1_009_300)

	assert.Equal(t, 1.7837, testutil.ToFloat64(m.referencePrice))
	assert.Equal(t, 0.05, testutil.ToFloat64(m.volatility))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.controllerState))
	assert.Equal(t, 1348.0, testutil.ToFloat64(m.filledTotal))
	assert.Equal(t, 13.0, testutil.ToFloat64(m.filledPerSecond))
	assert.Equal(t, 997_600.0, testutil.ToFloat64(m.bidPrice))
}

func TestMonitor_Handler(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordTick("hold")
	m.RecordStreamConnect()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `mm_deepbook_ticks_total{action="hold"} 1`), text)
	assert.Contains(t, text, "mm_deepbook_stream_connects_total 1")
}
