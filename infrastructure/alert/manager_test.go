package alert

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"deepbook-mm/infrastructure/logger"
)

func TestSendAlert(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Minute)

	require.NoError(t, mgr.SendError("place failed", map[string]interface{}{"side": "bid"}))
	require.Equal(t, 1, mock.Count())

	got := mock.Alerts()[0]
	assert.Equal(t, LevelError, got.Level)
	assert.Equal(t, "place failed", got.Message)
	assert.Equal(t, "bid", got.Fields["side"])
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, []string{"mock"}, mgr.Channels())
}

func TestSendAlertLevels(t *testing.T) {
	tests := []struct {
		send func(*Manager) error
		want Level
	}{
		{func(m *Manager) error { return m.SendInfo("x", nil) }, LevelInfo},
		{func(m *Manager) error { return m.SendWarning("x", nil) }, LevelWarning},
		{func(m *Manager) error { return m.SendError("x", nil) }, LevelError},
		{func(m *Manager) error { return m.SendCritical("x", nil) }, LevelCritical},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			mock := NewMockChannel("mock")
			require.NoError(t, tt.send(NewManager([]Channel{mock}, time.Minute)))
			require.Equal(t, 1, mock.Count())
			assert.Equal(t, tt.want, mock.Alerts()[0].Level)
		})
	}
}

func TestThrottling(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	mgr.throttle.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.NoError(t, mgr.SendWarning("volatility too high", nil))
	}
	assert.Equal(t, 1, mock.Count())

	// 不同消息互不影响
	require.NoError(t, mgr.SendWarning("other", nil))
	assert.Equal(t, 2, mock.Count())

	now = now.Add(time.Minute)
	require.NoError(t, mgr.SendWarning("volatility too high", nil))
	assert.Equal(t, 3, mock.Count())

	mgr.ResetThrottle()
	require.NoError(t, mgr.SendWarning("volatility too high", nil))
	assert.Equal(t, 4, mock.Count())
}

func TestThrottlerReset(t *testing.T) {
	th := NewThrottler(time.Hour)
	assert.True(t, th.Allow("k"))
	assert.False(t, th.Allow("k"))
	th.Reset("k")
	assert.True(t, th.Allow("k"))
}

func TestChannelFailures(t *testing.T) {
	bad := NewMockChannel("bad")
	bad.SetShouldError(true)

	mgr := NewManager([]Channel{bad}, 0)
	err := mgr.SendError("boom", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel bad")

	good := NewMockChannel("good")
	mgr.AddChannel(good)
	assert.NoError(t, mgr.SendError("boom again", nil))
	assert.Equal(t, 1, good.Count())
}

func TestLogChannel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ch := NewLogChannel("log", logger.Wrap(zap.New(core)))

	require.NoError(t, ch.Send(Alert{Level: LevelCritical, Message: "cancel failed", Fields: map[string]interface{}{"pool": "0x7f52"}}))
	require.NoError(t, ch.Send(Alert{Level: LevelWarning, Message: "vol"}))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "[ALERT] cancel failed", entries[0].Message)
	assert.Equal(t, "0x7f52", entries[0].ContextMap()["pool"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestWebhookChannel(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("hook", srv.URL, time.Second)
	require.NoError(t, ch.Send(Alert{Level: LevelError, Message: "place failed", Timestamp: time.Now()}))
	assert.Equal(t, "[ERROR] place failed", got["text"])

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	assert.Error(t, NewWebhookChannel("hook", failing.URL, time.Second).Send(Alert{Level: LevelInfo}))
}

func TestConcurrentAlerts(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.SendInfo("same", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, mock.Count())
}
