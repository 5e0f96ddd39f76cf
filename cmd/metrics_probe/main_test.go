package main

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepbook-mm/infrastructure/monitor"
)

func TestSummarize(t *testing.T) {
	m := monitor.New(monitor.DefaultConfig())
	m.RecordTick("hold")
	m.RecordOrderPlaced("bid")
	m.UpdateReferencePrice(1.78)
	m.RecordRPC("sui_getObject", 20*time.Millisecond, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	lines, err := summarize(body, "mm_deepbook_")
	require.NoError(t, err)
	assert.Contains(t, lines, `mm_deepbook_ticks_total{action="hold"} 1`)
	assert.Contains(t, lines, `mm_deepbook_orders_placed_total{side="bid"} 1`)
	assert.Contains(t, lines, `mm_deepbook_reference_price 1.78`)
	assert.Contains(t, lines, `mm_deepbook_rpc_latency_seconds{method="sui_getObject"} count=1 avg=0.0200s`)
}

func TestSummarize_Prefix(t *testing.T) {
	lines, err := summarize([]byte("# TYPE other_total counter\nother_total 3\n"), "mm_deepbook_")
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = summarize([]byte("not a metric line {"), "mm_")
	assert.Error(t, err)
}
