package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"deepbook-mm/config"
	"deepbook-mm/infrastructure/logger"
	"deepbook-mm/internal/container"
	"deepbook-mm/market"
	"deepbook-mm/order"
	"deepbook-mm/strategy"
)

// accountReader 是 deepbook.Client 上本工具用到的只读查询
type accountReader interface {
	Balances(ctx context.Context) (strategy.Balances, error)
	BestBidAsk(ctx context.Context) (market.Depth, error)
	OpenOrders(ctx context.Context) ([]order.RestingOrder, error)
}

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := config.RequireSigner(cfg); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, client, err := container.OpenExchange(ctx, cfg, logger.NewNop(), nil)
	if err != nil {
		log.Fatalf("open exchange: %v", err)
	}
	fmt.Printf("pool        %s\n", client.Pool().ID)
	fmt.Printf("accountCap  %s\n", client.AccountCap())
	if err := report(ctx, client, cfg.Market, time.Now(), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// report 分别查询余额、盘口和挂单，任一失败即返回
func report(ctx context.Context, r accountReader, m strategy.Market, now time.Time, w io.Writer) error {
	b, err := r.Balances(ctx)
	if err != nil {
		return fmt.Errorf("balances: %w", err)
	}
	fmt.Fprintf(w, "base  available=%s locked=%s\n", units(b.BaseAvailable, m.BaseScale()), units(b.BaseLocked, m.BaseScale()))
	fmt.Fprintf(w, "quote available=%s locked=%s\n", units(b.QuoteAvailable, m.QuoteScale()), units(b.QuoteLocked, m.QuoteScale()))

	depth, err := r.BestBidAsk(ctx)
	if err != nil {
		return fmt.Errorf("best bid/ask: %w", err)
	}
	fmt.Fprintf(w, "best bid=%s ask=%s\n", units(depth.Bid, m.PriceScale), units(depth.Ask, m.PriceScale))

	orders, err := r.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("open orders: %w", err)
	}
	if len(orders) == 0 {
		fmt.Fprintln(w, "no open orders")
		return nil
	}
	for _, o := range orders {
		fmt.Fprintf(w, "order %d %s price=%s qty=%s/%s expiresIn=%s\n",
			o.ID, o.Side, units(o.Price, m.PriceScale),
			units(o.Quantity, m.BaseScale()), units(o.OriginalQuantity, m.BaseScale()),
			o.ExpiresIn(now).Truncate(time.Second))
	}
	return nil
}

func units(v, scale uint64) string {
	if scale == 0 {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%d.%0*d", v/scale, digits(scale), v%scale)
}

func digits(scale uint64) int {
	n := 0
	for scale > 1 {
		scale /= 10
		n++
	}
	return n
}
