package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	ordersPlaced   *prometheus.CounterVec
	ordersCanceled prometheus.Counter
	ordersFailed   *prometheus.CounterVec

	// 控制器指标
	ticks           *prometheus.CounterVec
	controllerState prometheus.Gauge

	// 报价指标
	referencePrice prometheus.Gauge
	volatility     prometheus.Gauge
	spread         prometheus.Gauge
	midPrice       prometheus.Gauge
	bidPrice       prometheus.Gauge
	askPrice       prometheus.Gauge

	// 成交统计
	filledTotal     prometheus.Gauge
	filledPerSecond prometheus.Gauge

	// 系统指标
	rpcRequests       *prometheus.CounterVec
	rpcErrors         *prometheus.CounterVec
	rpcLatency        *prometheus.HistogramVec
	pricePollErrors   prometheus.Counter
	fillPollErrors    prometheus.Counter
	streamConnects    prometheus.Counter
	streamDisconnects prometheus.Counter
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "mm",
		Subsystem: "deepbook",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		})
	}

	return &Monitor{
		registry: reg,

		ordersPlaced:   counterVec("orders_placed_total", "已下单数量", "side"),
		ordersCanceled: counter("orders_canceled_total", "撤单（cancel_all）次数"),
		ordersFailed:   counterVec("orders_failed_total", "下单/撤单失败次数", "op"),

		ticks:           counterVec("ticks_total", "控制器 tick 次数", "action"),
		controllerState: gauge("controller_state", "控制器状态(0=idle,1=resting)"),

		referencePrice: gauge("reference_price", "参考价 (quote/base)"),
		volatility:     gauge("volatility", "已实现波动率"),
		spread:         gauge("spread_percent", "最近一次报价的基础价差（百分比）"),
		midPrice:       gauge("mid_price", "订单簿中间价（链上价格单位）"),
		bidPrice:       gauge("bid_price", "最近一次买单价格（链上价格单位）"),
		askPrice:       gauge("ask_price", "最近一次卖单价格（链上价格单位）"),

		filledTotal:     gauge("filled_total", "窗口内成交量（base 最小单位）"),
		filledPerSecond: gauge("filled_per_second", "窗口内每秒成交量"),

		rpcRequests: counterVec("rpc_requests_total", "Sui RPC 请求总数", "method"),
		rpcErrors:   counterVec("rpc_errors_total", "Sui RPC 错误总数", "method"),
		rpcLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "rpc_latency_seconds",
			Help:      "Sui RPC 延迟（秒）",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		pricePollErrors:   counter("price_poll_errors_total", "参考价轮询失败次数"),
		fillPollErrors:    counter("fill_poll_errors_total", "成交统计轮询失败次数"),
		streamConnects:    counter("stream_connects_total", "价格流连接次数"),
		streamDisconnects: counter("stream_disconnects_total", "价格流断开次数"),
	}
}

// 订单相关方法
func (m *Monitor) RecordOrderPlaced(side string) {
	m.ordersPlaced.WithLabelValues(side).Inc()
}

func (m *Monitor) RecordOrdersCanceled() {
	m.ordersCanceled.Inc()
}

func (m *Monitor) RecordOrderFailed(op string) {
	m.ordersFailed.WithLabelValues(op).Inc()
}

// 控制器相关方法
func (m *Monitor) RecordTick(action string) {
	m.ticks.WithLabelValues(action).Inc()
}

func (m *Monitor) UpdateControllerState(state int) {
	m.controllerState.Set(float64(state))
}

// 报价相关方法
func (m *Monitor) UpdateReferencePrice(v float64) {
	m.referencePrice.Set(v)
}

func (m *Monitor) UpdateVolatility(v float64) {
	m.volatility.Set(v)
}

func (m *Monitor) UpdateSpread(v float64) {
	m.spread.Set(v)
}

func (m *Monitor) UpdateMidPrice(v float64) {
	m.midPrice.Set(v)
}

func (m *Monitor) UpdateBidAsk(bid, ask float64) {
	m.bidPrice.Set(bid)
	m.askPrice.Set(ask)
}

func (m *Monitor) UpdateFillStats(filledTotal, perSecond float64) {
	m.filledTotal.Set(filledTotal)
	m.filledPerSecond.Set(perSecond)
}

// RecordRPC 与 sui.Observer 签名一致，可直接注册到 RPC 客户端
func (m *Monitor) RecordRPC(method string, took time.Duration, err error) {
	m.rpcRequests.WithLabelValues(method).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(took.Seconds())
	if err != nil {
		m.rpcErrors.WithLabelValues(method).Inc()
	}
}

func (m *Monitor) RecordPricePollError() {
	m.pricePollErrors.Inc()
}

func (m *Monitor) RecordFillPollError() {
	m.fillPollErrors.Inc()
}

func (m *Monitor) RecordStreamConnect() {
	m.streamConnects.Inc()
}

func (m *Monitor) RecordStreamDisconnect() {
	m.streamDisconnects.Inc()
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
