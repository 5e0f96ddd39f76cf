package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"deepbook-mm/infrastructure/logger"
)

// StreamConfig 配置 Hermes websocket 订阅。
type StreamConfig struct {
	URL        string
	BaseFeed   string
	QuoteFeed  string
	StaleAfter time.Duration // 超过该时间未更新视为过期
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// DefaultStreamConfig 返回 SUI/USDC 的默认订阅
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		URL:        DefaultStreamURL,
		BaseFeed:   SUIUSDFeed,
		QuoteFeed:  USDCUSDFeed,
		StaleAfter: 30 * time.Second,
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// StreamObserver 接收连接事件，用于指标。
type StreamObserver interface {
	RecordStreamConnect()
	RecordStreamDisconnect()
}

// Stream keeps the latest pushed prices of two feeds.
type Stream struct {
	cfg      StreamConfig
	base     string
	quote    string
	dialer   *websocket.Dialer
	log      *logger.Logger
	observer StreamObserver
	now      func() time.Time

	mu     sync.RWMutex
	latest map[string]PricePoint
}

func NewStream(cfg StreamConfig, log *logger.Logger, observer StreamObserver) *Stream {
	def := DefaultStreamConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = def.MinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Stream{
		cfg:      cfg,
		base:     NormalizeFeedID(cfg.BaseFeed),
		quote:    NormalizeFeedID(cfg.QuoteFeed),
		dialer:   websocket.DefaultDialer,
		log:      log,
		observer: observer,
		now:      time.Now,
		latest:   make(map[string]PricePoint),
	}
}

// LatestPrice returns base/quote from the most recent updates.
func (s *Stream) LatestPrice(_ context.Context) (float64, error) {
	s.mu.RLock()
	base, okBase := s.latest[s.base]
	quote, okQuote := s.latest[s.quote]
	s.mu.RUnlock()
	if !okBase {
		return 0, fmt.Errorf("stream: %w: %s", ErrFeedMissing, s.base)
	}
	if !okQuote {
		return 0, fmt.Errorf("stream: %w: %s", ErrFeedMissing, s.quote)
	}
	return crossFloat(base, quote, s.cfg.StaleAfter, s.now())
}

// Run 连接并订阅，断线后指数退避重连，直到 ctx 取消。
func (s *Stream) Run(ctx context.Context) error {
	backoff := s.cfg.MinBackoff
	for {
		connected, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = s.cfg.MinBackoff
		}
		s.log.Warn("price stream disconnected", zap.Error(err), zap.Duration("retryIn", backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

func (s *Stream) runOnce(ctx context.Context) (bool, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	defer conn.Close()
	if s.observer != nil {
		s.observer.RecordStreamConnect()
		defer s.observer.RecordStreamDisconnect()
	}

	sub := map[string]any{"type": "subscribe", "ids": []string{s.base, s.quote}}
	if err := conn.WriteJSON(sub); err != nil {
		return true, fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info("price stream subscribed", zap.String("url", s.cfg.URL), zap.Strings("feeds", []string{s.base, s.quote}))

	// ctx 取消时关闭连接以打断 ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if err := s.handleMessage(msg); err != nil {
			s.log.Debug("price stream message ignored", zap.Error(err))
		}
	}
}

type streamMessage struct {
	Type      string         `json:"type"`
	Status    string         `json:"status,omitempty"`
	Error     string         `json:"error,omitempty"`
	PriceFeed *priceFeedJSON `json:"price_feed,omitempty"`
}

func (s *Stream) handleMessage(b []byte) error {
	var m streamMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	switch m.Type {
	case "price_update":
		if m.PriceFeed == nil {
			return fmt.Errorf("price_update without price_feed")
		}
		p, err := m.PriceFeed.point()
		if err != nil {
			return err
		}
		s.mu.Lock()
		// 乱序到达的旧价格不覆盖新价格
		if prev, ok := s.latest[p.FeedID]; !ok || !p.PublishTime.Before(prev.PublishTime) {
			s.latest[p.FeedID] = p
		}
		s.mu.Unlock()
		return nil
	case "response":
		if m.Status != "success" {
			return fmt.Errorf("subscription rejected: %s", m.Error)
		}
		return nil
	}
	return fmt.Errorf("unknown message type %q", m.Type)
}
