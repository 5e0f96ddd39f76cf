package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deepbook-mm/config"
	"deepbook-mm/deepbook"
	"deepbook-mm/infrastructure/alert"
	"deepbook-mm/infrastructure/logger"
	"deepbook-mm/infrastructure/monitor"
	"deepbook-mm/internal/engine"
	"deepbook-mm/oracle"
	"deepbook-mm/sui"
)

// Overrides 命令行参数对配置文件的覆盖；零值表示不覆盖。
type Overrides struct {
	PriceIntervalSec int
	FillsIntervalSec int
	Debug            bool
}

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	cfg        config.AppConfig
	configPath string

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager

	// 交易所
	rpc      *sui.Client
	exchange *deepbook.Client

	// 核心服务
	cells       engine.Cells
	stream      *oracle.Stream
	pricePoller *engine.PricePoller
	fillsPoller *engine.FillsPoller
	controller  *engine.Controller

	lifecycle *LifecycleManager
}

// New 读取配置并应用命令行覆盖
func New(configPath string, o Overrides) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if o.PriceIntervalSec > 0 {
		cfg.Runner.PriceIntervalSec = o.PriceIntervalSec
	}
	if o.FillsIntervalSec > 0 {
		cfg.Runner.FillsIntervalSec = o.FillsIntervalSec
	}
	if o.Debug {
		cfg.Log.Level = "debug"
	}
	if err := config.RequireSigner(cfg); err != nil {
		return nil, err
	}
	return &Container{
		cfg:        cfg,
		configPath: configPath,
		lifecycle:  NewLifecycleManager(),
	}, nil
}

// Build 构建所有组件
func (c *Container) Build(ctx context.Context) error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	if err := c.buildExchange(ctx); err != nil {
		return fmt.Errorf("build exchange failed: %w", err)
	}
	if err := c.buildEngine(); err != nil {
		return fmt.Errorf("build engine failed: %w", err)
	}
	c.registerLifecycleComponents()
	c.logger.Info("container built successfully", zap.String("env", c.cfg.Env))
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	c.monitor = monitor.New(monitor.DefaultConfig())

	channels := []alert.Channel{alert.NewLogChannel("log", c.logger.Named("alert"))}
	if c.cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookChannel("webhook", c.cfg.Alert.WebhookURL, 5*time.Second))
	}
	c.alerts = alert.NewManager(channels, time.Duration(c.cfg.Alert.ThrottleSec)*time.Second)
	return nil
}

func (c *Container) buildExchange(ctx context.Context) error {
	var err error
	c.rpc, c.exchange, err = OpenExchange(ctx, c.cfg, c.logger, c.monitor)
	return err
}

// OpenExchange 连接 Sui RPC、加载签名者并创建 DeepBook 客户端；命令行工具也复用它。
func OpenExchange(ctx context.Context, cfg config.AppConfig, log *logger.Logger, m *monitor.Monitor) (*sui.Client, *deepbook.Client, error) {
	signer, err := sui.NewSignerFromKeystore(cfg.Sui.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("load signer: %w", err)
	}

	var opts []sui.Option
	if m != nil {
		opts = append(opts, sui.WithObserver(m.RecordRPC))
	}
	rpc := sui.NewClient(sui.Config{
		URL:        cfg.Sui.RPCURL,
		Timeout:    time.Duration(cfg.Sui.TimeoutSec) * time.Second,
		RetryCount: cfg.Sui.RetryCount,
		RateLimit:  cfg.Sui.RateLimit,
		RateBurst:  cfg.Sui.RateBurst,
	}, opts...)

	client, err := deepbook.NewClient(ctx, rpc, signer, deepbook.Config{
		PoolID:         cfg.Sui.PoolID,
		AccountCap:     cfg.Sui.AccountCap,
		GasBudget:      cfg.Sui.GasBudget,
		FillEventLimit: cfg.Runner.FillEventLimit,
		PriceScale:     cfg.Market.PriceScale,
		BaseScale:      cfg.Market.BaseScale(),
	}, log.Named("deepbook"))
	if err != nil {
		return nil, nil, err
	}
	return rpc, client, nil
}

func (c *Container) buildEngine() error {
	c.cells = engine.NewCells()

	var source engine.PriceSource
	if c.cfg.Oracle.Stream {
		c.stream = oracle.NewStream(oracle.StreamConfig{
			URL:        c.cfg.Oracle.StreamURL,
			BaseFeed:   c.cfg.Oracle.BaseFeed,
			QuoteFeed:  c.cfg.Oracle.QuoteFeed,
			StaleAfter: c.cfg.Oracle.StaleAfter(),
		}, c.logger.Named("stream"), c.monitor)
		source = c.stream
	} else {
		hermes := oracle.NewHermesClient(c.cfg.Oracle.HermesURL, 10*time.Second)
		source = oracle.NewPair(hermes, c.cfg.Oracle.BaseFeed, c.cfg.Oracle.QuoteFeed, c.cfg.Oracle.StaleAfter())
	}

	c.pricePoller = engine.NewPricePoller(source, c.cells, c.cfg.Runner.VolatilityWindow,
		c.cfg.Runner.PriceInterval(), c.logger.Named("price"), c.monitor)
	c.fillsPoller = engine.NewFillsPoller(c.exchange, c.cells,
		c.cfg.Runner.FillsInterval(), c.logger.Named("fills"), c.monitor)

	var err error
	c.controller, err = engine.NewController(engine.ControllerConfig{
		Market:       c.cfg.Market,
		Params:       c.cfg.Quoting,
		TickInterval: c.cfg.Runner.Tick(),
		CancelOnExit: c.cfg.Runner.CancelOnExit,
	}, engine.Components{
		Query:   c.exchange,
		Orders:  c.exchange,
		Cells:   c.cells,
		Clock:   engine.SystemClock,
		Logger:  c.logger.Named("controller"),
		Monitor: c.monitor,
		Alerts:  c.alerts,
	})
	return err
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.MetricsAddr != "" {
		c.lifecycle.Register(&httpServerComponent{
			name:    "metrics_server",
			handler: c.monitor.Handler(),
			addr:    c.cfg.MetricsAddr,
			logger:  c.logger,
		})
	}
	if c.configPath != "" {
		w := config.Watcher{Path: c.configPath, Log: c.logger.Named("config")}
		c.lifecycle.Register(newLoop("config_watcher", func(ctx context.Context) error {
			return w.Run(ctx, c.applyConfig)
		}, c.logger))
	}
	if c.stream != nil {
		c.lifecycle.Register(newLoop("price_stream", c.stream.Run, c.logger))
	}
	c.lifecycle.Register(newLoop("price_poller", c.pricePoller.Run, c.logger))
	c.lifecycle.Register(newLoop("fills_poller", c.fillsPoller.Run, c.logger))
	c.lifecycle.Register(newLoop("controller", c.controller.Run, c.logger))
}

// applyConfig 只热更新报价参数，其余字段需要重启
func (c *Container) applyConfig(cfg config.AppConfig) {
	if err := c.controller.SetParams(cfg.Quoting); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "apply_quoting_params"})
	}
}

// Start 启动所有组件
func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")
	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	c.logger.Info("container started")
	return nil
}

// Stop 停止所有组件；配置了 cancelOnExit 时撤销挂单
func (c *Container) Stop() error {
	c.logger.Info("stopping container...")
	err := c.lifecycle.StopAll()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cerr := c.controller.Shutdown(ctx); cerr != nil {
		c.logger.LogError(cerr, map[string]interface{}{"action": "cancel_on_exit"})
		c.alert(cerr)
	}

	_ = c.logger.Close()
	return err
}

func (c *Container) alert(err error) {
	_ = c.alerts.SendCritical("shutdown left orders resting", map[string]interface{}{"error": err.Error()})
}

// HealthCheck 检查所有组件
func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

func (c *Container) Logger() *logger.Logger { return c.logger }

func (c *Container) Config() config.AppConfig { return c.cfg }
