package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"deepbook-mm/config"
	"deepbook-mm/infrastructure/logger"
	"deepbook-mm/internal/container"
)

// 紧急撤单：撤销账户在池子里的全部挂单
func main() {
	cfgPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dryRun", false, "only list open orders")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := config.RequireSigner(cfg); err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, client, err := container.OpenExchange(ctx, cfg, lg, nil)
	if err != nil {
		log.Fatalf("open exchange: %v", err)
	}
	orders, err := client.OpenOrders(ctx)
	if err != nil {
		log.Fatalf("open orders: %v", err)
	}
	fmt.Printf("%d open orders\n", len(orders))
	if len(orders) == 0 || *dryRun {
		return
	}

	digest, err := client.CancelAllOrders(ctx)
	if err != nil {
		log.Fatalf("cancel all: %v", err)
	}
	fmt.Printf("canceled, tx %s\n", digest)
}
