package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"deepbook-mm/deepbook"
	"deepbook-mm/infrastructure/alert"
	"deepbook-mm/infrastructure/logger"
	"deepbook-mm/infrastructure/monitor"
	"deepbook-mm/market"
	"deepbook-mm/order"
	"deepbook-mm/strategy"
)

// State 控制器状态
type State int32

const (
	// StateIdle 没有挂单
	StateIdle State = iota
	// StateResting 至少有一笔挂单
	StateResting
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateResting:
		return "RESTING"
	default:
		return "UNKNOWN"
	}
}

// Action 是一次 Step 的结果
type Action int

const (
	// ActionWait 空闲且本轮不报价（波动率未就绪、引擎判定不报价）
	ActionWait Action = iota
	// ActionHold 挂单仍然有效，不做任何操作
	ActionHold
	// ActionPlace 提交了新的买/卖单
	ActionPlace
	// ActionCancel 撤销了全部挂单
	ActionCancel
	// ActionError 查询或交易失败，下个 tick 重试
	ActionError
)

func (a Action) String() string {
	switch a {
	case ActionWait:
		return "wait"
	case ActionHold:
		return "hold"
	case ActionPlace:
		return "place"
	case ActionCancel:
		return "cancel"
	case ActionError:
		return "error"
	default:
		return "unknown"
	}
}

// QueryService 一次往返读取余额、盘口与挂单
type QueryService interface {
	Snapshot(ctx context.Context) (deepbook.Snapshot, error)
}

// OrderService 下单与撤单，返回交易 digest
type OrderService interface {
	PlaceLimitOrders(ctx context.Context, orders ...order.LimitOrder) (string, error)
	CancelAllOrders(ctx context.Context) (string, error)
}

// Cells 三个轮询任务发布的最新值
type Cells struct {
	Price      *market.Cell[float64]
	Volatility *market.Cell[float64]
	Fills      *market.Cell[market.FillStats]
}

// NewCells 创建空的 Cells
func NewCells() Cells {
	return Cells{
		Price:      market.NewCell[float64](),
		Volatility: market.NewCell[float64](),
		Fills:      market.NewCell[market.FillStats](),
	}
}

// ControllerConfig 控制器配置
type ControllerConfig struct {
	Market       strategy.Market
	Params       strategy.Params
	TickInterval time.Duration
	CancelOnExit bool // 退出时撤销全部挂单
}

// Components 控制器依赖组件
type Components struct {
	Query   QueryService
	Orders  OrderService
	Cells   Cells
	Clock   Clock
	Logger  *logger.Logger
	Monitor *monitor.Monitor
	Alerts  *alert.Manager
}

// Controller 订单生命周期控制器：每个 tick 读取快照，决定保持、撤单或报价。
type Controller struct {
	cfg    ControllerConfig
	params atomic.Pointer[strategy.Params]
	state  atomic.Int32

	query   QueryService
	orders  OrderService
	cells   Cells
	clock   Clock
	log     *logger.Logger
	metrics *monitor.Monitor
	alerts  *alert.Manager

	stepMu sync.Mutex
}

// NewController 创建控制器
func NewController(cfg ControllerConfig, c Components) (*Controller, error) {
	if c.Query == nil || c.Orders == nil {
		return nil, errors.New("query and order services are required")
	}
	if c.Cells.Price == nil || c.Cells.Volatility == nil || c.Cells.Fills == nil {
		return nil, errors.New("cells are required")
	}
	if err := cfg.Market.Validate(); err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 400 * time.Millisecond
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}

	ctl := &Controller{
		cfg:     cfg,
		query:   c.Query,
		orders:  c.Orders,
		cells:   c.Cells,
		clock:   c.Clock,
		log:     c.Logger,
		metrics: c.Monitor,
		alerts:  c.Alerts,
	}
	p := cfg.Params
	ctl.params.Store(&p)
	return ctl, nil
}

// Params 返回当前生效的报价参数
func (c *Controller) Params() strategy.Params {
	return *c.params.Load()
}

// SetParams 热更新报价参数，下一个 tick 生效
func (c *Controller) SetParams(p strategy.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.params.Store(&p)
	c.log.Info("quoting params updated",
		zap.Float64("baseSpread", p.BaseSpread),
		zap.Float64("maxVolatility", p.MaxVolatility),
		zap.Duration("minDuration", p.MinDuration),
		zap.Duration("maxDuration", p.MaxDuration))
	return nil
}

// State 返回最近一次 Step 之后的状态
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	if State(c.state.Swap(int32(s))) != s {
		c.log.Debug("controller state changed", zap.Stringer("state", s))
	}
	if c.metrics != nil {
		c.metrics.UpdateControllerState(int(s))
	}
}

// Run 按 TickInterval 执行 Step，直到 ctx 取消
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("controller starting",
		zap.Duration("tick", c.cfg.TickInterval),
		zap.Bool("cancelOnExit", c.cfg.CancelOnExit))

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("controller stopped")
			return nil
		case <-ticker.C:
			c.Step(ctx)
		}
	}
}

// Shutdown 在配置了 CancelOnExit 且仍有挂单时撤单
func (c *Controller) Shutdown(ctx context.Context) error {
	if !c.cfg.CancelOnExit || c.State() != StateResting {
		return nil
	}
	c.stepMu.Lock()
	defer c.stepMu.Unlock()

	digest, err := c.orders.CancelAllOrders(ctx)
	if err != nil {
		return fmt.Errorf("cancel on exit: %w", err)
	}
	c.log.LogTx("cancel_on_exit", digest, nil)
	c.setState(StateIdle)
	return nil
}

// Step 执行一次状态机。失败不重试，等待下一个 tick。
func (c *Controller) Step(ctx context.Context) Action {
	c.stepMu.Lock()
	defer c.stepMu.Unlock()

	action := c.step(ctx)
	if c.metrics != nil {
		c.metrics.RecordTick(action.String())
	}
	return action
}

func (c *Controller) step(ctx context.Context) Action {
	snap, err := c.query.Snapshot(ctx)
	if err != nil {
		c.log.Warn("snapshot failed", zap.Error(err))
		return ActionError
	}
	if mid, ok := snap.Depth.Mid(); ok && c.metrics != nil {
		c.metrics.UpdateMidPrice(float64(mid))
	}

	if len(snap.Orders) > 0 {
		c.setState(StateResting)
		return c.checkResting(ctx, snap)
	}
	c.setState(StateIdle)
	return c.quote(ctx, snap)
}

// checkResting 任一挂单偏离 mid 超过阈值或即将过期时撤销全部挂单，本 tick 不再报价。
func (c *Controller) checkResting(ctx context.Context, snap deepbook.Snapshot) Action {
	p := c.Params()
	now := c.clock.Now()

	mid, ok := snap.Depth.Mid()
	if !ok {
		// 盘口单边为空时退回参考价
		if price, has := c.cells.Price.Load(); has && price > 0 {
			mid = uint64(price * float64(c.cfg.Market.PriceScale))
			ok = mid > 0
		}
	}

	reason := ""
	var trigger order.RestingOrder
	for _, o := range snap.Orders {
		if o.ExpiresIn(now) <= p.ExpiryGuard {
			reason, trigger = "expiry", o
			break
		}
		if ok && Drift(o.Price, mid) > p.DriftThreshold {
			reason, trigger = "drift", o
			break
		}
	}
	if reason == "" {
		return ActionHold
	}

	fields := map[string]interface{}{
		"reason":    reason,
		"price":     trigger.Price,
		"mid":       mid,
		"expiresIn": trigger.ExpiresIn(now).String(),
		"open":      len(snap.Orders),
	}
	digest, err := c.orders.CancelAllOrders(ctx)
	if err != nil {
		fields["error"] = err.Error()
		c.log.LogError(err, fields)
		c.alert(alert.LevelError, "cancel all orders failed", fields)
		if c.metrics != nil {
			c.metrics.RecordOrderFailed("cancel")
		}
		return ActionError
	}
	c.log.LogOrder("canceled_all", fmt.Sprintf("%d", trigger.ID), fields)
	c.log.LogTx("cancel_all", digest, nil)
	if c.metrics != nil {
		c.metrics.RecordOrdersCanceled()
	}
	c.setState(StateIdle)
	return ActionCancel
}

func (c *Controller) quote(ctx context.Context, snap deepbook.Snapshot) Action {
	vol, ok := c.cells.Volatility.Load()
	if !ok {
		return ActionWait
	}
	price, ok := c.cells.Price.Load()
	if !ok {
		return ActionWait
	}
	fills, _ := c.cells.Fills.Load()
	p := c.Params()

	dec, ok := strategy.Decide(snap.Balances, price, fills, vol, c.cfg.Market, p)
	if !ok {
		switch {
		case snap.Balances.HasLocked():
			c.log.LogRisk("funds_locked", map[string]interface{}{
				"baseLocked":  snap.Balances.BaseLocked,
				"quoteLocked": snap.Balances.QuoteLocked,
			})
		case vol > p.MaxVolatility:
			fields := map[string]interface{}{"volatility": vol, "max": p.MaxVolatility}
			c.log.LogRisk("volatility_too_high", fields)
			c.alert(alert.LevelWarning, "volatility too high, quoting paused", fields)
		}
		return ActionWait
	}

	expireAt := c.clock.Now().Add(dec.Duration)
	cons := c.cfg.Market.Constraints()
	var orders []order.LimitOrder
	for _, o := range []order.LimitOrder{
		{Price: dec.BidPrice, Quantity: dec.BidQuantity, Side: order.SideBid},
		{Price: dec.AskPrice, Quantity: dec.AskQuantity, Side: order.SideAsk},
	} {
		if o.Quantity == 0 {
			continue
		}
		if err := cons.Validate(o.Price, o.Quantity); err != nil {
			c.log.Warn("order skipped", zap.String("side", o.Side.String()), zap.Error(err))
			continue
		}
		o.Restriction = order.PostOrAbort
		o.ExpireAt = expireAt
		orders = append(orders, o)
	}
	if len(orders) == 0 {
		return ActionWait
	}

	fields := map[string]interface{}{
		"reference":  price,
		"volatility": vol,
		"spread":     dec.Spread,
		"askSpread":  dec.AskSpread,
		"bidSpread":  dec.BidSpread,
		"askPrice":   dec.AskPrice,
		"askQty":     dec.AskQuantity,
		"bidPrice":   dec.BidPrice,
		"bidQty":     dec.BidQuantity,
		"duration":   dec.Duration.String(),
		"baseExp":    dec.BaseExposure,
		"quoteExp":   dec.QuoteExposure,
	}
	c.log.LogQuote("decided", fields)

	digest, err := c.orders.PlaceLimitOrders(ctx, orders...)
	if err != nil {
		fields["error"] = err.Error()
		c.log.LogError(err, fields)
		c.alert(alert.LevelError, "place limit orders failed", fields)
		if c.metrics != nil {
			c.metrics.RecordOrderFailed("place")
		}
		return ActionError
	}

	c.log.LogTx("place", digest, map[string]interface{}{"orders": len(orders)})
	if c.metrics != nil {
		for _, o := range orders {
			c.metrics.RecordOrderPlaced(o.Side.String())
		}
		c.metrics.UpdateSpread(dec.Spread)
		c.metrics.UpdateBidAsk(float64(dec.BidPrice), float64(dec.AskPrice))
	}
	c.setState(StateResting)
	return ActionPlace
}

func (c *Controller) alert(level alert.Level, msg string, fields map[string]interface{}) {
	if c.alerts == nil {
		return
	}
	if err := c.alerts.SendAlert(alert.Alert{Level: level, Message: msg, Fields: fields}); err != nil {
		c.log.Warn("send alert failed", zap.Error(err))
	}
}

// Drift 返回 |price-mid|/mid；mid 为 0 时返回 +Inf
func Drift(price, mid uint64) float64 {
	if mid == 0 {
		return math.Inf(1)
	}
	diff := float64(price) - float64(mid)
	return math.Abs(diff) / float64(mid)
}
