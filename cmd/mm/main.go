package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"deepbook-mm/internal/container"
)

// 发布构建通过 -ldflags "-X main.version=..." 注入
var version = "0.0.0"

func main() {
	cfgPath := flag.String("config", "", "配置文件路径（留空则使用默认值与环境变量）")
	priceSec := flag.Int("price", 1, "参考价轮询间隔（秒）")
	calcSec := flag.Int("calculations", 30, "成交统计轮询间隔（秒）")
	debug := flag.Bool("debug", false, "输出 debug 日志")
	showVersion := flag.Bool("version", false, "打印版本后退出")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// 只有显式传入的间隔才覆盖配置文件
	o := container.Overrides{Debug: *debug}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "price":
			o.PriceIntervalSec = *priceSec
		case "calculations":
			o.FillsIntervalSec = *calcSec
		}
	})
	c, err := container.New(*cfgPath, o)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buildCtx, cancelBuild := context.WithTimeout(ctx, time.Minute)
	err = c.Build(buildCtx)
	cancelBuild()
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	lg := c.Logger()
	lg.Info("deepbook-mm starting", zap.String("version", version))

	if err := c.Start(ctx); err != nil {
		lg.LogError(err, map[string]interface{}{"action": "start"})
		_ = c.Stop()
		os.Exit(1)
	}
	notify(lg.Logger, daemon.SdNotifyReady)
	go watchdog(ctx, c, lg.Logger)

	<-ctx.Done()
	notify(lg.Logger, daemon.SdNotifyStopping)
	lg.Info("shutdown signal received")
	if err := c.Stop(); err != nil {
		os.Exit(1)
	}
}

// notify 不在 systemd 下运行时 SdNotify 返回 (false, nil)
func notify(lg *zap.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		lg.Warn("sd_notify failed", zap.String("state", state), zap.Error(err))
	}
}

// watchdog 在组件健康时按 WatchdogSec 的一半喂狗
func watchdog(ctx context.Context, c *container.Container, lg *zap.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.HealthCheck(); err != nil {
				lg.Warn("health check failed, skipping watchdog ping", zap.Error(err))
				continue
			}
			notify(lg, daemon.SdNotifyWatchdog)
		}
	}
}
