// Package oracle reads Pyth reference prices from the Hermes service.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	DefaultHermesURL = "https://hermes.pyth.network"
	DefaultStreamURL = "wss://hermes.pyth.network/ws"

	// SUIUSDFeed 与 USDCUSDFeed 是 Pyth 的价格源 id。
	SUIUSDFeed  = "0x23d7315113f5b1d3ba7a83604c44b94d79f4fd69af77f804fc7f920a6dc65744"
	USDCUSDFeed = "0xeaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a"
)

var (
	// ErrFeedMissing 表示响应中没有所需的价格源。
	ErrFeedMissing = errors.New("price feed missing")
	// ErrStalePrice is returned when the newest price is older than the staleness limit.
	ErrStalePrice = errors.New("price is stale")
)

// PricePoint is one Pyth price: Price * 10^Expo, published at PublishTime.
type PricePoint struct {
	FeedID      string
	Price       int64
	Conf        uint64
	Expo        int32
	PublishTime time.Time
}

// Value returns the price as a decimal.
func (p PricePoint) Value() decimal.Decimal {
	return decimal.New(p.Price, p.Expo)
}

// CrossPrice 计算 base/quote 交叉价，例如 SUI/USD ÷ USDC/USD。
func CrossPrice(base, quote PricePoint) (decimal.Decimal, error) {
	q := quote.Value()
	if !q.IsPositive() {
		return decimal.Zero, fmt.Errorf("quote feed %s has non-positive price %s", quote.FeedID, q)
	}
	b := base.Value()
	if !b.IsPositive() {
		return decimal.Zero, fmt.Errorf("base feed %s has non-positive price %s", base.FeedID, b)
	}
	return b.DivRound(q, 12), nil
}

// NormalizeFeedID 统一为小写、不带 0x 前缀。
func NormalizeFeedID(id string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "0x"))
}

type priceJSON struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

type priceFeedJSON struct {
	ID       string    `json:"id"`
	Price    priceJSON `json:"price"`
	EMAPrice priceJSON `json:"ema_price"`
}

func (f priceFeedJSON) point() (PricePoint, error) {
	price, err := strconv.ParseInt(f.Price.Price, 10, 64)
	if err != nil {
		return PricePoint{}, fmt.Errorf("feed %s: price %q: %w", f.ID, f.Price.Price, err)
	}
	var conf uint64
	if f.Price.Conf != "" {
		if conf, err = strconv.ParseUint(f.Price.Conf, 10, 64); err != nil {
			return PricePoint{}, fmt.Errorf("feed %s: conf %q: %w", f.ID, f.Price.Conf, err)
		}
	}
	return PricePoint{
		FeedID:      NormalizeFeedID(f.ID),
		Price:       price,
		Conf:        conf,
		Expo:        f.Price.Expo,
		PublishTime: time.Unix(f.Price.PublishTime, 0),
	}, nil
}

// HermesClient queries the Hermes REST API.
type HermesClient struct {
	http *resty.Client
}

func NewHermesClient(baseURL string, timeout time.Duration) *HermesClient {
	if baseURL == "" {
		baseURL = DefaultHermesURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HermesClient{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(timeout),
	}
}

// LatestPrices fetches the latest price of each feed, keyed by normalized feed id.
func (c *HermesClient) LatestPrices(ctx context.Context, ids ...string) (map[string]PricePoint, error) {
	var feeds []priceFeedJSON
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(url.Values{"ids[]": ids}).
		SetResult(&feeds).
		Get("/api/latest_price_feeds")
	if err != nil {
		return nil, fmt.Errorf("hermes: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("hermes: http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	out := make(map[string]PricePoint, len(feeds))
	for _, f := range feeds {
		p, err := f.point()
		if err != nil {
			return nil, fmt.Errorf("hermes: %w", err)
		}
		out[p.FeedID] = p
	}
	for _, id := range ids {
		if _, ok := out[NormalizeFeedID(id)]; !ok {
			return nil, fmt.Errorf("hermes: %w: %s", ErrFeedMissing, id)
		}
	}
	return out, nil
}

// Pair 通过 REST 轮询计算 base/quote 参考价。
type Pair struct {
	client     *HermesClient
	base       string
	quote      string
	staleAfter time.Duration
	now        func() time.Time
}

// NewPair creates a REST price source. staleAfter <= 0 disables the staleness check.
func NewPair(client *HermesClient, baseFeed, quoteFeed string, staleAfter time.Duration) *Pair {
	return &Pair{
		client:     client,
		base:       NormalizeFeedID(baseFeed),
		quote:      NormalizeFeedID(quoteFeed),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// LatestPrice returns base/quote as a float.
func (p *Pair) LatestPrice(ctx context.Context) (float64, error) {
	prices, err := p.client.LatestPrices(ctx, p.base, p.quote)
	if err != nil {
		return 0, err
	}
	return crossFloat(prices[p.base], prices[p.quote], p.staleAfter, p.now())
}

func crossFloat(base, quote PricePoint, staleAfter time.Duration, now time.Time) (float64, error) {
	if staleAfter > 0 {
		for _, pt := range []PricePoint{base, quote} {
			if age := now.Sub(pt.PublishTime); age > staleAfter {
				return 0, fmt.Errorf("%w: feed %s is %s old", ErrStalePrice, pt.FeedID, age.Truncate(time.Second))
			}
		}
	}
	cross, err := CrossPrice(base, quote)
	if err != nil {
		return 0, err
	}
	f, _ := cross.Float64()
	return f, nil
}
