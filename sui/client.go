package sui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrRPC 表示节点返回了错误（HTTP 非 2xx 或 JSON-RPC error 对象）。
	ErrRPC = errors.New("sui rpc error")
	// ErrObjectNotFound is returned by GetObject for deleted or unknown objects.
	ErrObjectNotFound = errors.New("object not found")
)

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (e *RPCError) Unwrap() error { return ErrRPC }

// Observer 在每次 RPC 调用结束后回调，用于指标采集。
type Observer func(method string, took time.Duration, err error)

// Config 配置 RPC 客户端。
type Config struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
	RateLimit  float64 // 每秒请求数
	RateBurst  int
}

// DefaultConfig 返回主网默认配置
func DefaultConfig() Config {
	return Config{
		URL:       "https://fullnode.mainnet.sui.io:443",
		Timeout:   15 * time.Second,
		RateLimit: 10,
		RateBurst: 20,
	}
}

// Client is a Sui JSON-RPC 2.0 client.
type Client struct {
	url      string
	http     *resty.Client
	limiter  RateLimiter
	observer Observer
	nextID   atomic.Uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithObserver registers a per-call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLimiter replaces the default token bucket.
func WithLimiter(l RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

func NewClient(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json")

	c := &Client{
		url:  strings.TrimSuffix(cfg.URL, "/"),
		http: httpClient,
	}
	if cfg.RateLimit > 0 {
		c.limiter = NewTokenBucketLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Call 发起一次 JSON-RPC 调用并把 result 解码到 result（可为 nil）。
func (c *Client) Call(ctx context.Context, method string, params []any, result any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer(method, time.Since(start), err)
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
	}
	if params == nil {
		params = []any{}
	}
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %w: http %d: %s", method, ErrRPC, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	var out rpcResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if out.Error != nil {
		return fmt.Errorf("%s: %w", method, out.Error)
	}
	if result == nil {
		return nil
	}
	if len(out.Result) == 0 || string(out.Result) == "null" {
		return fmt.Errorf("%s: %w: empty result", method, ErrRPC)
	}
	if err := json.Unmarshal(out.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// GetObject 读取对象的类型、版本与所有者。
func (c *Client) GetObject(ctx context.Context, id ObjectID) (ObjectData, error) {
	var resp ObjectResponse
	opts := map[string]bool{"showType": true, "showOwner": true}
	if err := c.Call(ctx, "sui_getObject", []any{id.String(), opts}, &resp); err != nil {
		return ObjectData{}, err
	}
	if resp.Data == nil {
		return ObjectData{}, fmt.Errorf("%s: %w: %s", id, ErrObjectNotFound, string(resp.Error))
	}
	return *resp.Data, nil
}

// GetOwnedObjects lists objects of structType owned by owner.
func (c *Client) GetOwnedObjects(ctx context.Context, owner Address, structType string, cursor json.RawMessage, limit int) (Page[ObjectResponse], error) {
	query := map[string]any{
		"filter":  map[string]string{"StructType": structType},
		"options": map[string]bool{"showType": true, "showOwner": true},
	}
	var page Page[ObjectResponse]
	err := c.Call(ctx, "suix_getOwnedObjects", []any{owner.String(), query, rawOrNil(cursor), limit}, &page)
	return page, err
}

// QueryEvents 按 Move 事件类型查询事件。
func (c *Client) QueryEvents(ctx context.Context, moveEventType string, cursor json.RawMessage, limit int, descending bool) (Page[Event], error) {
	filter := map[string]string{"MoveEventType": moveEventType}
	var page Page[Event]
	err := c.Call(ctx, "suix_queryEvents", []any{filter, rawOrNil(cursor), limit, descending}, &page)
	return page, err
}

// GetReferenceGasPrice returns the current epoch's reference gas price.
func (c *Client) GetReferenceGasPrice(ctx context.Context) (uint64, error) {
	var price Uint64
	if err := c.Call(ctx, "suix_getReferenceGasPrice", nil, &price); err != nil {
		return 0, err
	}
	return uint64(price), nil
}

// GetCoins lists coins of coinType owned by owner.
func (c *Client) GetCoins(ctx context.Context, owner Address, coinType string, cursor json.RawMessage, limit int) (Page[Coin], error) {
	var page Page[Coin]
	err := c.Call(ctx, "suix_getCoins", []any{owner.String(), coinType, rawOrNil(cursor), limit}, &page)
	return page, err
}

// DevInspectTransactionBlock 只读执行一个 TransactionKind，不上链。
func (c *Client) DevInspectTransactionBlock(ctx context.Context, sender Address, kind []byte) (DevInspectResults, error) {
	var res DevInspectResults
	params := []any{sender.String(), base64.StdEncoding.EncodeToString(kind), nil, nil}
	if err := c.Call(ctx, "sui_devInspectTransactionBlock", params, &res); err != nil {
		return res, err
	}
	if res.Error != "" {
		return res, fmt.Errorf("devInspect: %w: %s", ErrRPC, res.Error)
	}
	if !res.Effects.Succeeded() {
		return res, fmt.Errorf("devInspect: %w: %s %s", ErrRPC, res.Effects.Status.Status, res.Effects.Status.Error)
	}
	return res, nil
}

// ExecuteTransactionBlock submits a signed transaction and waits for local execution.
func (c *Client) ExecuteTransactionBlock(ctx context.Context, txBytes []byte, signatures []string) (TransactionResponse, error) {
	var res TransactionResponse
	params := []any{
		base64.StdEncoding.EncodeToString(txBytes),
		signatures,
		map[string]bool{"showEffects": true},
		"WaitForLocalExecution",
	}
	if err := c.Call(ctx, "sui_executeTransactionBlock", params, &res); err != nil {
		return res, err
	}
	return res, nil
}

func rawOrNil(cursor json.RawMessage) any {
	if len(cursor) == 0 || string(cursor) == "null" {
		return nil
	}
	return cursor
}
