package container

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepbook-mm/infrastructure/logger"
)

type recorder struct {
	events []string
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
}

func (f *fakeComponent) Name() string { return f.name }
func (f *fakeComponent) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.rec.events = append(f.rec.events, "start:"+f.name)
	return nil
}
func (f *fakeComponent) Stop() error {
	f.rec.events = append(f.rec.events, "stop:"+f.name)
	return nil
}
func (f *fakeComponent) Health() error { return nil }

func TestLifecycleManager_Order(t *testing.T) {
	rec := &recorder{}
	m := NewLifecycleManager()
	m.Register(&fakeComponent{name: "a", rec: rec})
	m.Register(&fakeComponent{name: "b", rec: rec})

	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())
	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, rec.events)
	assert.NoError(t, m.CheckHealth())
}

func TestLifecycleManager_RollbackOnFailure(t *testing.T) {
	rec := &recorder{}
	m := NewLifecycleManager()
	m.Register(&fakeComponent{name: "a", rec: rec})
	m.Register(&fakeComponent{name: "b", rec: rec, startErr: errors.New("port in use")})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start b")
	assert.Equal(t, []string{"start:a", "stop:a"}, rec.events)
}

func TestLoopComponent(t *testing.T) {
	l := newLoop("ticker", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, logger.NewNop())

	assert.Error(t, l.Health())
	require.NoError(t, l.Start(context.Background()))
	assert.NoError(t, l.Health())
	require.NoError(t, l.Stop())
	assert.Error(t, l.Health())
}

func TestLoopComponent_ReportsExit(t *testing.T) {
	l := newLoop("watcher", func(context.Context) error {
		return errors.New("watch failed")
	}, logger.NewNop())
	require.NoError(t, l.Start(context.Background()))

	require.Eventually(t, func() bool { return l.Health() != nil }, time.Second, 5*time.Millisecond)
	assert.Contains(t, l.Health().Error(), "watch failed")
	assert.NoError(t, l.Stop())
}

func TestHTTPServerComponent(t *testing.T) {
	h := &httpServerComponent{
		name: "metrics_server",
		addr: "127.0.0.1:0",
		handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}),
		logger: logger.NewNop(),
	}
	assert.Error(t, h.Health())
	require.NoError(t, h.Start(context.Background()))
	assert.NoError(t, h.Health())
	require.NoError(t, h.Stop())
	assert.Error(t, h.Health())
}
