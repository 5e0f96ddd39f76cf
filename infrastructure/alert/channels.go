package alert

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"deepbook-mm/infrastructure/logger"
)

// LogChannel 把告警写入结构化日志
type LogChannel struct {
	log  *logger.Logger
	name string
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(name string, log *logger.Logger) *LogChannel {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogChannel{log: log, name: name}
}

// Send 按告警级别映射日志级别
func (c *LogChannel) Send(alert Alert) error {
	fields := []zap.Field{
		zap.String("level", string(alert.Level)),
		zap.Time("at", alert.Timestamp),
	}
	keys := make([]string, 0, len(alert.Fields))
	for k := range alert.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, alert.Fields[k]))
	}

	lvl := zapcore.InfoLevel
	switch alert.Level {
	case LevelWarning:
		lvl = zapcore.WarnLevel
	case LevelError, LevelCritical:
		lvl = zapcore.ErrorLevel
	}
	if ce := c.log.Check(lvl, "[ALERT] "+alert.Message); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (c *LogChannel) Name() string {
	return c.name
}

// WebhookChannel 以 JSON POST 推送告警（Slack/飞书等兼容 text 字段的 webhook）
type WebhookChannel struct {
	name string
	url  string
	http *resty.Client
}

// NewWebhookChannel 创建 webhook 告警通道
func NewWebhookChannel(name, url string, timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookChannel{
		name: name,
		url:  url,
		http: resty.New().SetTimeout(timeout),
	}
}

func (c *WebhookChannel) Send(alert Alert) error {
	body := map[string]interface{}{
		"text":   fmt.Sprintf("[%s] %s", alert.Level, alert.Message),
		"level":  alert.Level,
		"ts":     alert.Timestamp.UTC().Format(time.RFC3339),
		"fields": alert.Fields,
	}
	resp, err := c.http.R().SetBody(body).Post(c.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook http %d", resp.StatusCode())
	}
	return nil
}

func (c *WebhookChannel) Name() string {
	return c.name
}

// MockChannel 记录告警，用于测试
type MockChannel struct {
	name      string
	mu        sync.Mutex
	alerts    []Alert
	shouldErr bool
}

// NewMockChannel 创建模拟告警通道
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(alert Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldErr {
		return errors.New("mock error")
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *MockChannel) Name() string {
	return c.name
}

// Alerts 返回收到的告警副本
func (c *MockChannel) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

// SetShouldError 设置是否返回错误
func (c *MockChannel) SetShouldError(shouldErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldErr = shouldErr
}

// Count 返回接收到的告警数量
func (c *MockChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
