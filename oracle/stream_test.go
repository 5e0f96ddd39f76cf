package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	connects    atomic.Int32
	disconnects atomic.Int32
}

func (o *countingObserver) RecordStreamConnect()    { o.connects.Add(1) }
func (o *countingObserver) RecordStreamDisconnect() { o.disconnects.Add(1) }

func newHermesWS(t *testing.T, publish int64) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub struct {
			Type string   `json:"type"`
			IDs  []string `json:"ids"`
		}
		if err := conn.ReadJSON(&sub); err != nil || sub.Type != "subscribe" {
			return
		}
		_ = conn.WriteJSON(map[string]any{"type": "response", "status": "success"})
		for _, id := range sub.IDs {
			price := "100000000"
			if id == NormalizeFeedID(SUIUSDFeed) {
				price = "178370000"
			}
			_ = conn.WriteJSON(map[string]any{"type": "price_update", "price_feed": feedJSON(id, price, -8, publish)})
		}
		// 保持连接直到客户端断开
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStream_ReceivesPrices(t *testing.T) {
	now := time.Now()
	srv := newHermesWS(t, now.Unix())

	obs := &countingObserver{}
	cfg := DefaultStreamConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewStream(cfg, nil, obs)

	_, err := s.LatestPrice(context.Background())
	assert.True(t, errors.Is(err, ErrFeedMissing))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		p, err := s.LatestPrice(context.Background())
		return err == nil && p > 1.78 && p < 1.79
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
	assert.Equal(t, int32(1), obs.connects.Load())
	assert.Equal(t, int32(1), obs.disconnects.Load())
}

func TestStream_HandleMessage(t *testing.T) {
	s := NewStream(DefaultStreamConfig(), nil, nil)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	require.NoError(t, s.handleMessage([]byte(`{"type":"price_update","price_feed":{"id":"23d7315113f5b1d3ba7a83604c44b94d79f4fd69af77f804fc7f920a6dc65744","price":{"price":"200000000","conf":"1","expo":-8,"publish_time":1700000000}}}`)))
	require.NoError(t, s.handleMessage([]byte(`{"type":"price_update","price_feed":{"id":"eaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a","price":{"price":"100000000","conf":"1","expo":-8,"publish_time":1700000000}}}`)))
	// 更旧的价格被忽略
	require.NoError(t, s.handleMessage([]byte(`{"type":"price_update","price_feed":{"id":"23d7315113f5b1d3ba7a83604c44b94d79f4fd69af77f804fc7f920a6dc65744","price":{"price":"100000000","conf":"1","expo":-8,"publish_time":1699999990}}}`)))

	p, err := s.LatestPrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, p, 1e-12)

	assert.Error(t, s.handleMessage([]byte(`{"type":"response","status":"error","error":"unknown id"}`)))
	assert.Error(t, s.handleMessage([]byte(`{"type":"mystery"}`)))
	assert.Error(t, s.handleMessage([]byte(`not json`)))

	s.now = func() time.Time { return now.Add(time.Minute) }
	_, err = s.LatestPrice(context.Background())
	assert.True(t, errors.Is(err, ErrStalePrice))
}
