package deepbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"deepbook-mm/infrastructure/logger"
	"deepbook-mm/market"
	"deepbook-mm/order"
	"deepbook-mm/strategy"
	"deepbook-mm/sui"
)

const suiCoinType = "0x2::sui::SUI"

var (
	// ErrNoGasCoin 账户中没有余额足够支付 gas 预算的 SUI coin。
	ErrNoGasCoin = errors.New("no gas coin covers the gas budget")
	// ErrExecutionFailed is returned when a transaction executes with a failure status.
	ErrExecutionFailed = errors.New("transaction execution failed")
)

// Config 池子与交易参数。
type Config struct {
	PoolID         string
	AccountCap     string // 为空时按 owner 查找
	GasBudget      uint64
	FillEventLimit int
	PriceScale     uint64
	BaseScale      uint64
}

// DefaultConfig 返回 SUI/USDC 池的默认配置
func DefaultConfig() Config {
	return Config{
		PoolID:         DefaultPoolID,
		GasBudget:      50_000_000,
		FillEventLimit: 100,
		PriceScale:     1_000_000,
		BaseScale:      1_000_000_000,
	}
}

// Snapshot is one consistent read of the account and the book.
type Snapshot struct {
	Balances strategy.Balances
	Depth    market.Depth
	Orders   []order.RestingOrder
}

// Client 读取池子状态、下单与撤单。
type Client struct {
	rpc    *sui.Client
	signer *sui.Signer
	pool   Pool
	capID  sui.ObjectID
	cfg    Config
	log    *logger.Logger
	now    func() time.Time

	lastClientID atomic.Uint64
}

// NewClient loads the pool and resolves the account cap.
func NewClient(ctx context.Context, rpc *sui.Client, signer *sui.Signer, cfg Config, log *logger.Logger) (*Client, error) {
	def := DefaultConfig()
	if cfg.PoolID == "" {
		cfg.PoolID = def.PoolID
	}
	if cfg.GasBudget == 0 {
		cfg.GasBudget = def.GasBudget
	}
	if cfg.FillEventLimit <= 0 {
		cfg.FillEventLimit = def.FillEventLimit
	}
	if cfg.PriceScale == 0 {
		cfg.PriceScale = def.PriceScale
	}
	if cfg.BaseScale == 0 {
		cfg.BaseScale = def.BaseScale
	}
	if log == nil {
		log = logger.NewNop()
	}

	poolID, err := sui.ParseAddress(cfg.PoolID)
	if err != nil {
		return nil, fmt.Errorf("pool id: %w", err)
	}
	pool, err := LoadPool(ctx, rpc, poolID)
	if err != nil {
		return nil, err
	}

	var capID sui.ObjectID
	if cfg.AccountCap != "" {
		capID, err = sui.ParseAddress(cfg.AccountCap)
		if err != nil {
			return nil, fmt.Errorf("account cap: %w", err)
		}
	} else {
		capID, err = FindAccountCap(ctx, rpc, signer.Address())
		if err != nil {
			return nil, err
		}
	}

	log.Info("deepbook client ready",
		zap.String("pool", pool.ID.String()),
		zap.Uint64("initialSharedVersion", pool.InitialSharedVersion),
		zap.String("base", pool.BaseType.String()),
		zap.String("quote", pool.QuoteType.String()),
		zap.String("accountCap", capID.String()),
		zap.String("sender", signer.Address().String()),
	)

	return &Client{
		rpc:    rpc,
		signer: signer,
		pool:   pool,
		capID:  capID,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}, nil
}

func (c *Client) Pool() Pool { return c.pool }

func (c *Client) AccountCap() sui.ObjectID { return c.capID }

// capRef 读取 AccountCap 的最新引用；owned 对象每次交易后版本都会变化。
func (c *Client) capRef(ctx context.Context) (sui.ObjectRef, error) {
	obj, err := c.rpc.GetObject(ctx, c.capID)
	if err != nil {
		return sui.ObjectRef{}, fmt.Errorf("account cap: %w", err)
	}
	return obj.Ref()
}

func (c *Client) inspect(ctx context.Context, build func(b *sui.PTBBuilder, acct sui.ObjectRef) error) (sui.DevInspectResults, error) {
	acct, err := c.capRef(ctx)
	if err != nil {
		return sui.DevInspectResults{}, err
	}
	b := sui.NewPTBBuilder()
	if err := build(b, acct); err != nil {
		return sui.DevInspectResults{}, err
	}
	return c.rpc.DevInspectTransactionBlock(ctx, c.signer.Address(), b.Finish().MarshalKind())
}

// Snapshot 一次 devInspect 同时读取余额、最优买卖价与挂单。
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	res, err := c.inspect(ctx, func(b *sui.PTBBuilder, acct sui.ObjectRef) error {
		if err := AccountBalance(b, c.pool, acct); err != nil {
			return err
		}
		if err := GetMarketPrice(b, c.pool); err != nil {
			return err
		}
		return ListOpenOrders(b, c.pool, acct)
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	var snap Snapshot
	vals, err := returnValues(res, 0, 4)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Balances, err = DecodeBalances(vals); err != nil {
		return Snapshot{}, err
	}
	if vals, err = returnValues(res, 1, 2); err != nil {
		return Snapshot{}, err
	}
	if snap.Depth, err = DecodeMarketPrice(vals); err != nil {
		return Snapshot{}, err
	}
	if vals, err = returnValues(res, 2, 1); err != nil {
		return Snapshot{}, err
	}
	if snap.Orders, err = DecodeOrders(vals[0].Bytes); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Balances reads the custodian balances of the account cap.
func (c *Client) Balances(ctx context.Context) (strategy.Balances, error) {
	res, err := c.inspect(ctx, func(b *sui.PTBBuilder, acct sui.ObjectRef) error {
		return AccountBalance(b, c.pool, acct)
	})
	if err != nil {
		return strategy.Balances{}, fmt.Errorf("account_balance: %w", err)
	}
	vals, err := returnValues(res, 0, 4)
	if err != nil {
		return strategy.Balances{}, err
	}
	return DecodeBalances(vals)
}

// BestBidAsk reads the best bid and ask; an empty side is 0.
func (c *Client) BestBidAsk(ctx context.Context) (market.Depth, error) {
	res, err := c.inspect(ctx, func(b *sui.PTBBuilder, _ sui.ObjectRef) error {
		return GetMarketPrice(b, c.pool)
	})
	if err != nil {
		return market.Depth{}, fmt.Errorf("get_market_price: %w", err)
	}
	vals, err := returnValues(res, 0, 2)
	if err != nil {
		return market.Depth{}, err
	}
	return DecodeMarketPrice(vals)
}

// OpenOrders lists the account's resting orders.
func (c *Client) OpenOrders(ctx context.Context) ([]order.RestingOrder, error) {
	res, err := c.inspect(ctx, func(b *sui.PTBBuilder, acct sui.ObjectRef) error {
		return ListOpenOrders(b, c.pool, acct)
	})
	if err != nil {
		return nil, fmt.Errorf("list_open_orders: %w", err)
	}
	vals, err := returnValues(res, 0, 1)
	if err != nil {
		return nil, err
	}
	return DecodeOrders(vals[0].Bytes)
}

// nextClientOrderID 以毫秒时间戳为基础，同一毫秒内递增保证唯一。
func (c *Client) nextClientOrderID() uint64 {
	for {
		last := c.lastClientID.Load()
		id := uint64(c.now().UnixMilli())
		if id <= last {
			id = last + 1
		}
		if c.lastClientID.CompareAndSwap(last, id) {
			return id
		}
	}
}

// PlaceLimitOrders places all orders in one programmable transaction and returns its digest.
func (c *Client) PlaceLimitOrders(ctx context.Context, orders ...order.LimitOrder) (string, error) {
	if len(orders) == 0 {
		return "", errors.New("place_limit_order: no orders")
	}
	orders = append([]order.LimitOrder(nil), orders...)
	digest, err := c.execute(ctx, func(b *sui.PTBBuilder, acct sui.ObjectRef) error {
		for i := range orders {
			if orders[i].ClientOrderID == 0 {
				orders[i].ClientOrderID = c.nextClientOrderID()
			}
			if err := PlaceLimitOrder(b, c.pool, acct, orders[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("place_limit_order: %w", err)
	}
	for _, o := range orders {
		c.log.LogOrder("placed", fmt.Sprint(o.ClientOrderID), map[string]interface{}{
			"side":        o.Side.String(),
			"price":       o.Price,
			"quantity":    o.Quantity,
			"restriction": o.Restriction.String(),
			"expire_at":   o.ExpireAt.UnixMilli(),
			"digest":      digest,
		})
	}
	return digest, nil
}

// CancelAllOrders cancels every resting order of the account cap.
func (c *Client) CancelAllOrders(ctx context.Context) (string, error) {
	digest, err := c.execute(ctx, func(b *sui.PTBBuilder, acct sui.ObjectRef) error {
		return CancelAllOrders(b, c.pool, acct)
	})
	if err != nil {
		return "", fmt.Errorf("cancel_all_orders: %w", err)
	}
	c.log.LogOrder("cancel_all", "", map[string]interface{}{"digest": digest})
	return digest, nil
}

func (c *Client) execute(ctx context.Context, build func(b *sui.PTBBuilder, acct sui.ObjectRef) error) (string, error) {
	acct, err := c.capRef(ctx)
	if err != nil {
		return "", err
	}
	b := sui.NewPTBBuilder()
	if err := build(b, acct); err != nil {
		return "", err
	}
	gasPrice, err := c.rpc.GetReferenceGasPrice(ctx)
	if err != nil {
		return "", err
	}
	gasCoin, err := c.selectGasCoin(ctx)
	if err != nil {
		return "", err
	}

	sender := c.signer.Address()
	tx := sui.TransactionData{
		Kind:   b.Finish(),
		Sender: sender,
		Gas: sui.GasData{
			Payment: []sui.ObjectRef{gasCoin},
			Owner:   sender,
			Price:   gasPrice,
			Budget:  c.cfg.GasBudget,
		},
	}
	txBytes := tx.Marshal()
	c.log.Debug("submitting transaction",
		zap.String("digest", sui.TransactionDigest(txBytes)),
		zap.Uint64("gasPrice", gasPrice),
		zap.String("gasCoin", gasCoin.ID.String()),
	)

	resp, err := c.rpc.ExecuteTransactionBlock(ctx, txBytes, []string{c.signer.SignTransaction(txBytes)})
	if err != nil {
		return "", err
	}
	if resp.Effects == nil {
		return resp.Digest, fmt.Errorf("%w: %s: no effects", ErrExecutionFailed, resp.Digest)
	}
	if !resp.Effects.Succeeded() {
		return resp.Digest, fmt.Errorf("%w: %s: %s", ErrExecutionFailed, resp.Digest, resp.Effects.Status.Error)
	}
	return resp.Digest, nil
}

// selectGasCoin 选择第一个余额不低于 gas 预算的 SUI coin。
func (c *Client) selectGasCoin(ctx context.Context) (sui.ObjectRef, error) {
	var cursor json.RawMessage
	for {
		page, err := c.rpc.GetCoins(ctx, c.signer.Address(), suiCoinType, cursor, 50)
		if err != nil {
			return sui.ObjectRef{}, err
		}
		for _, coin := range page.Data {
			if uint64(coin.Balance) >= c.cfg.GasBudget {
				return coin.Ref()
			}
		}
		if !page.HasNextPage || len(page.NextCursor) == 0 {
			return sui.ObjectRef{}, ErrNoGasCoin
		}
		cursor = page.NextCursor
	}
}

type orderFilledJSON struct {
	Price         sui.Uint64 `json:"price"`
	BaseFilled    sui.Uint64 `json:"base_asset_quantity_filled"`
	BaseRemaining sui.Uint64 `json:"base_asset_quantity_remaining"`
}

// ParseFillEvents converts OrderFilled events, keeping their order.
func ParseFillEvents(events []sui.Event) ([]market.FillEvent, error) {
	out := make([]market.FillEvent, 0, len(events))
	for _, ev := range events {
		var f orderFilledJSON
		if err := json.Unmarshal(ev.ParsedJSON, &f); err != nil {
			return nil, fmt.Errorf("OrderFilled %s/%s: %w", ev.ID.TxDigest, ev.ID.EventSeq, err)
		}
		out = append(out, market.FillEvent{
			Price:         uint64(f.Price),
			BaseFilled:    uint64(f.BaseFilled),
			BaseRemaining: uint64(f.BaseRemaining),
			Timestamp:     time.UnixMilli(int64(ev.TimestampMs)),
		})
	}
	return out, nil
}

// FillStats 读取最近的成交事件（新的在前）并重新汇总。
func (c *Client) FillStats(ctx context.Context) (market.FillStats, error) {
	page, err := c.rpc.QueryEvents(ctx, c.pool.FillEventType(), nil, c.cfg.FillEventLimit, true)
	if err != nil {
		return market.FillStats{}, fmt.Errorf("query fills: %w", err)
	}
	events, err := ParseFillEvents(page.Data)
	if err != nil {
		return market.FillStats{}, err
	}
	return market.ComputeFillStats(events, c.now(), c.cfg.PriceScale, c.cfg.BaseScale), nil
}
