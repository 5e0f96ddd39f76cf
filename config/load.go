package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"deepbook-mm/deepbook"
	"deepbook-mm/infrastructure/logger"
	"deepbook-mm/market"
	"deepbook-mm/oracle"
	"deepbook-mm/strategy"
)

// ErrInvalid 所有校验错误都包装该哨兵，调用方可用 errors.Is 判断。
var ErrInvalid = errors.New("invalid config")

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string          `yaml:"env"`
	Sui         SuiConfig       `yaml:"sui"`
	Oracle      OracleConfig    `yaml:"oracle"`
	Market      strategy.Market `yaml:"market"`
	Quoting     strategy.Params `yaml:"quoting"`
	Runner      RunnerConfig    `yaml:"runner"`
	Log         logger.Config   `yaml:"log"`
	MetricsAddr string          `yaml:"metricsAddr"`
	Alert       AlertConfig     `yaml:"alert"`
}

// SuiConfig 链上连接与账户配置。
type SuiConfig struct {
	RPCURL     string  `yaml:"rpcURL"`
	PrivateKey string  `yaml:"privateKey"` // keystore 格式 base64(flag||seed)，建议用环境变量
	PoolID     string  `yaml:"poolID"`
	AccountCap string  `yaml:"accountCap"` // 为空时按地址自动查找
	GasBudget  uint64  `yaml:"gasBudget"`
	TimeoutSec int     `yaml:"timeoutSec"`
	RetryCount int     `yaml:"retryCount"`
	RateLimit  float64 `yaml:"rateLimit"`
	RateBurst  int     `yaml:"rateBurst"`
}

type OracleConfig struct {
	HermesURL     string `yaml:"hermesURL"`
	StreamURL     string `yaml:"streamURL"`
	Stream        bool   `yaml:"stream"` // true 使用 websocket 推送，否则 REST 轮询
	BaseFeed      string `yaml:"baseFeed"`
	QuoteFeed     string `yaml:"quoteFeed"`
	StaleAfterSec int    `yaml:"staleAfterSec"`
}

// StaleAfter 返回过期阈值
func (o OracleConfig) StaleAfter() time.Duration {
	return time.Duration(o.StaleAfterSec) * time.Second
}

type RunnerConfig struct {
	PriceIntervalSec int  `yaml:"priceIntervalSec"`
	FillsIntervalSec int  `yaml:"fillsIntervalSec"`
	TickMs           int  `yaml:"tickMs"`
	VolatilityWindow int  `yaml:"volatilityWindow"`
	FillEventLimit   int  `yaml:"fillEventLimit"`
	CancelOnExit     bool `yaml:"cancelOnExit"` // 退出时撤销全部挂单
}

func (r RunnerConfig) PriceInterval() time.Duration {
	return time.Duration(r.PriceIntervalSec) * time.Second
}

func (r RunnerConfig) FillsInterval() time.Duration {
	return time.Duration(r.FillsIntervalSec) * time.Second
}

func (r RunnerConfig) Tick() time.Duration {
	return time.Duration(r.TickMs) * time.Millisecond
}

type AlertConfig struct {
	ThrottleSec int    `yaml:"throttleSec"`
	WebhookURL  string `yaml:"webhookURL"`
}

// Default 返回主网 SUI/USDC 的默认配置；Load 在其基础上覆盖文件中的字段。
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Sui: SuiConfig{
			RPCURL:     "https://fullnode.mainnet.sui.io:443",
			PoolID:     deepbook.DefaultPoolID,
			GasBudget:  50_000_000,
			TimeoutSec: 15,
			RateLimit:  10,
			RateBurst:  20,
		},
		Oracle: OracleConfig{
			HermesURL:     oracle.DefaultHermesURL,
			StreamURL:     oracle.DefaultStreamURL,
			BaseFeed:      oracle.SUIUSDFeed,
			QuoteFeed:     oracle.USDCUSDFeed,
			StaleAfterSec: 60,
		},
		Market:  strategy.DefaultMarket(),
		Quoting: strategy.DefaultParams(),
		Runner: RunnerConfig{
			PriceIntervalSec: 1,
			FillsIntervalSec: 30,
			TickMs:           400,
			VolatilityWindow: market.DefaultVolatilityWindow,
			FillEventLimit:   100,
		},
		Log:         logger.DefaultConfig(),
		MetricsAddr: ":9101",
		Alert:       AlertConfig{ThrottleSec: 300},
	}
}

// Parse 解析 YAML，未出现的字段保留默认值。
func Parse(raw []byte) (AppConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
// path 为空时只使用默认值和环境变量。
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(raw); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, Validate(cfg)
}

func applyEnv(cfg *AppConfig) {
	// SUI_RPC 为旧变量名
	if v := os.Getenv("SUI_RPC"); v != "" {
		cfg.Sui.RPCURL = v
	}
	if v := os.Getenv("MM_SUI_RPC"); v != "" {
		cfg.Sui.RPCURL = v
	}
	if v := os.Getenv("MM_SUI_PRIVATE_KEY"); v != "" {
		cfg.Sui.PrivateKey = v
	}
	if v := os.Getenv("MM_SUI_ACCOUNT_CAP"); v != "" {
		cfg.Sui.AccountCap = v
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if cfg.Env == "" {
		fail("env is required")
	}
	if !strings.HasPrefix(cfg.Sui.RPCURL, "http") {
		fail("sui.rpcURL must be an http(s) url, got %q", cfg.Sui.RPCURL)
	}
	if cfg.Sui.PoolID == "" {
		fail("sui.poolID is required")
	}
	if cfg.Sui.GasBudget == 0 {
		fail("sui.gasBudget must be > 0")
	}
	if cfg.Sui.RateLimit < 0 || cfg.Sui.RateBurst < 0 {
		fail("sui.rateLimit/rateBurst must be >= 0")
	}
	if cfg.Oracle.BaseFeed == "" || cfg.Oracle.QuoteFeed == "" {
		fail("oracle.baseFeed/quoteFeed is required")
	}
	if cfg.Oracle.StaleAfterSec < 0 {
		fail("oracle.staleAfterSec must be >= 0")
	}
	if err := cfg.Market.Validate(); err != nil {
		fail("market: %v", err)
	}
	if err := cfg.Quoting.Validate(); err != nil {
		fail("quoting: %v", err)
	}
	if cfg.Runner.PriceIntervalSec <= 0 || cfg.Runner.FillsIntervalSec <= 0 || cfg.Runner.TickMs <= 0 {
		fail("runner intervals must be > 0")
	}
	if cfg.Runner.VolatilityWindow < 2 {
		fail("runner.volatilityWindow must be >= 2, got %d", cfg.Runner.VolatilityWindow)
	}
	if cfg.Runner.FillEventLimit <= 0 {
		fail("runner.fillEventLimit must be > 0")
	}
	if cfg.Alert.ThrottleSec < 0 {
		fail("alert.throttleSec must be >= 0")
	}
	return errors.Join(errs...)
}

// RequireSigner 交易类命令额外要求私钥。
func RequireSigner(cfg AppConfig) error {
	if cfg.Sui.PrivateKey == "" {
		return fmt.Errorf("%w: sui.privateKey is required (or MM_SUI_PRIVATE_KEY)", ErrInvalid)
	}
	return nil
}
