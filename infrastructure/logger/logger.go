package logger

import (
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 封装zap日志器，提供做市事件的结构化日志
type Logger struct {
	*zap.Logger
	config Config
	now    func() time.Time
}

// Config 日志配置
type Config struct {
	Level      string   `yaml:"level"`      // debug, info, warn, error
	Outputs    []string `yaml:"outputs"`    // stdout, stderr, file
	OutputFile string   `yaml:"outputFile"` // 日志文件路径
	ErrorFile  string   `yaml:"errorFile"`  // 错误日志单独文件
	Format     string   `yaml:"format"`     // json 或 console
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stdout"},
		Format:  "console",
	}
}

// New 创建新的Logger实例
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	newEncoder := func() zapcore.Encoder {
		if cfg.Format == "console" {
			return zapcore.NewConsoleEncoder(encoderConfig)
		}
		return zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{}
	if contains(cfg.Outputs, "stdout") {
		cores = append(cores, zapcore.NewCore(newEncoder(), zapcore.AddSync(os.Stdout), level))
	}
	if contains(cfg.Outputs, "stderr") {
		cores = append(cores, zapcore.NewCore(newEncoder(), zapcore.AddSync(os.Stderr), level))
	}

	// 文件统一使用 JSON，便于事后分析
	if contains(cfg.Outputs, "file") && cfg.OutputFile != "" {
		fileWriter, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file failed: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(fileWriter),
			level,
		))
	}
	if cfg.ErrorFile != "" {
		errorWriter, err := os.OpenFile(cfg.ErrorFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open error log file failed: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(errorWriter),
			zapcore.ErrorLevel,
		))
	}

	zapLogger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{Logger: zapLogger, config: cfg, now: time.Now}, nil
}

// NewNop 返回丢弃所有输出的日志器
func NewNop() *Logger {
	return Wrap(zap.NewNop())
}

// Wrap 包装已有的 zap 日志器（测试里常配合 zaptest/observer 使用）
func Wrap(l *zap.Logger) *Logger {
	return &Logger{Logger: l, config: DefaultConfig(), now: time.Now}
}

// WithFields 添加字段返回新的logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.With(toFields(fields)...),
		config: l.config,
		now:    l.now,
	}
}

// Named 返回带子模块名的logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), config: l.config, now: l.now}
}

// LogOrder 记录订单相关事件（下单、撤单）
func (l *Logger) LogOrder(event string, orderID string, fields map[string]interface{}) {
	fields = l.stamp(fields, event)
	fields["order_id"] = orderID
	l.Info("order_event", l.checked("order_event", fields)...)
}

// LogQuote 记录一次报价决策
func (l *Logger) LogQuote(event string, fields map[string]interface{}) {
	l.Info("quote_event", l.checked("quote_event", l.stamp(fields, event))...)
}

// LogTx 记录链上交易结果
func (l *Logger) LogTx(event string, digest string, fields map[string]interface{}) {
	fields = l.stamp(fields, event)
	fields["digest"] = digest
	l.Info("tx_event", l.checked("tx_event", fields)...)
}

// LogTrade 记录成交统计
func (l *Logger) LogTrade(event string, fields map[string]interface{}) {
	l.Info("trade_event", l.checked("trade_event", l.stamp(fields, event))...)
}

// LogError 记录错误并附带上下文
func (l *Logger) LogError(err error, context map[string]interface{}) {
	if context == nil {
		context = make(map[string]interface{})
	}
	if err != nil {
		context["error"] = err.Error()
	}
	context["ts"] = l.now().UTC().Format(time.RFC3339Nano)
	l.Error("error_event", toFields(context)...)
}

// LogRisk 记录风控事件（资金锁定、波动率过高等）
func (l *Logger) LogRisk(event string, fields map[string]interface{}) {
	l.Warn("risk_event", l.checked("risk_event", l.stamp(fields, event))...)
}

// Close 关闭日志器
func (l *Logger) Close() error {
	return l.Sync()
}

func (l *Logger) stamp(fields map[string]interface{}, event string) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event"] = event
	fields["ts"] = l.now().UTC().Format(time.RFC3339Nano)
	return fields
}

// checked 校验事件字段，缺失时附加 schema_error 而不是丢弃日志
func (l *Logger) checked(msg string, fields map[string]interface{}) []zap.Field {
	if err := Validate(msg, fields); err != nil {
		fields["schema_error"] = err.Error()
	}
	return toFields(fields)
}

// toFields 按 key 排序，保证输出稳定
func toFields(m map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, m[k]))
	}
	return out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
