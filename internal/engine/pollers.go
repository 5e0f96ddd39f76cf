package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"deepbook-mm/infrastructure/logger"
	"deepbook-mm/infrastructure/monitor"
	"deepbook-mm/market"
)

// PriceSource 提供 base/quote 参考价
type PriceSource interface {
	LatestPrice(ctx context.Context) (float64, error)
}

// FillStatsService 返回最近成交窗口的统计
type FillStatsService interface {
	FillStats(ctx context.Context) (market.FillStats, error)
}

// PricePoller 定期读取参考价，维护波动率窗口并发布 price/volatility。
// 窗口只由本 goroutine 读写。
type PricePoller struct {
	source   PriceSource
	tracker  *market.VolatilityTracker
	price    *market.Cell[float64]
	vol      *market.Cell[float64]
	interval time.Duration
	log      *logger.Logger
	metrics  *monitor.Monitor
}

// NewPricePoller 创建价格轮询器；window 为波动率窗口长度
func NewPricePoller(source PriceSource, cells Cells, window int, interval time.Duration, log *logger.Logger, m *monitor.Monitor) *PricePoller {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PricePoller{
		source:   source,
		tracker:  market.NewVolatilityTracker(window),
		price:    cells.Price,
		vol:      cells.Volatility,
		interval: interval,
		log:      log,
		metrics:  m,
	}
}

// Poll 读取一次价格。失败时保留上一次的价格。
func (p *PricePoller) Poll(ctx context.Context) error {
	price, err := p.source.LatestPrice(ctx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordPricePollError()
		}
		p.log.Warn("reference price unavailable", zap.Error(err))
		return err
	}
	if price <= 0 {
		p.log.Warn("reference price ignored", zap.Float64("price", price))
		return nil
	}

	p.tracker.Insert(price)
	p.price.Store(price)
	if p.metrics != nil {
		p.metrics.UpdateReferencePrice(price)
	}

	vol, ok := p.tracker.Compute()
	if !ok {
		p.log.Debug("volatility window filling",
			zap.Int("samples", p.tracker.Len()),
			zap.Int("window", p.tracker.Length()))
		return nil
	}
	p.vol.Store(vol)
	if p.metrics != nil {
		p.metrics.UpdateVolatility(vol)
	}
	return nil
}

// Run 每个 interval 轮询一次，直到 ctx 取消
func (p *PricePoller) Run(ctx context.Context) error {
	p.log.Info("price poller starting",
		zap.Duration("interval", p.interval),
		zap.Int("window", p.tracker.Length()))
	return every(ctx, p.interval, func() { _ = p.Poll(ctx) })
}

// FillsPoller 定期整体替换成交统计
type FillsPoller struct {
	service  FillStatsService
	cell     *market.Cell[market.FillStats]
	interval time.Duration
	log      *logger.Logger
	metrics  *monitor.Monitor
}

func NewFillsPoller(service FillStatsService, cells Cells, interval time.Duration, log *logger.Logger, m *monitor.Monitor) *FillsPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &FillsPoller{
		service:  service,
		cell:     cells.Fills,
		interval: interval,
		log:      log,
		metrics:  m,
	}
}

// Poll 读取一次成交统计
func (f *FillsPoller) Poll(ctx context.Context) error {
	stats, err := f.service.FillStats(ctx)
	if err != nil {
		if f.metrics != nil {
			f.metrics.RecordFillPollError()
		}
		f.log.Warn("fill stats unavailable", zap.Error(err))
		return err
	}
	f.cell.Store(stats)
	if f.metrics != nil {
		f.metrics.UpdateFillStats(float64(stats.FilledTotal), float64(stats.FilledPerSecond))
	}
	f.log.LogTrade("fill_stats", map[string]interface{}{
		"durationSeconds": stats.DurationSeconds,
		"filledTotal":     stats.FilledTotal,
		"unfilledTotal":   stats.UnfilledTotal,
		"filledPerSecond": stats.FilledPerSecond,
		"samples":         stats.SampleCount,
	})
	return nil
}

// Run 每个 interval 轮询一次，直到 ctx 取消
func (f *FillsPoller) Run(ctx context.Context) error {
	f.log.Info("fill stats poller starting", zap.Duration("interval", f.interval))
	return every(ctx, f.interval, func() { _ = f.Poll(ctx) })
}

// every 先等待 interval 再执行 fn，循环直到 ctx 取消
func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
