package zap

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFmt = "2006/01/02 15:04:05.000"

const (
	Dev Mode = iota
	Prod
)

type Mode int32

// Config 日志配置；Prod 模式或 File 为 true 时额外写滚动文件
type Config struct {
	Mode  Mode
	Level string
	App   string
	Dir   string
	File  bool

	// 滚动参数，0 使用默认值
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func (c *Config) withDefaults() *Config {
	out := Config{Mode: Dev, Level: "debug"}
	if c != nil {
		out = *c
	}
	if out.App == "" {
		out.App = "app"
	}
	if out.MaxSizeMB <= 0 {
		out.MaxSizeMB = 100
	}
	if out.MaxBackups <= 0 {
		out.MaxBackups = 7
	}
	if out.MaxAgeDays <= 0 {
		out.MaxAgeDays = 10
	}
	return &out
}

// Logger 将 kratos 日志转发到 zap
type Logger struct {
	log    *zap.Logger
	msgKey string
}

var _ log.Logger = (*Logger)(nil)

type Option func(*Logger)

// WithMessageKey 指定作为消息体的键，默认 msg
func WithMessageKey(key string) Option {
	return func(l *Logger) {
		l.msgKey = key
	}
}

func toZapLevel(level log.Level) zapcore.Level {
	switch level {
	case log.LevelDebug:
		return zapcore.DebugLevel
	case log.LevelWarn:
		return zapcore.WarnLevel
	case log.LevelError:
		return zapcore.ErrorLevel
	case log.LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Log implements log.Logger
func (l *Logger) Log(level log.Level, keyvals ...any) error {
	if len(keyvals) == 0 {
		return nil
	}
	ce := l.log.Check(toZapLevel(level), "")
	if ce == nil {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "!MISSING-VALUE")
	}

	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if key == l.msgKey {
			ce.Message = fmt.Sprint(keyvals[i+1])
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}
	if ce.Message == "" {
		ce.Message = "no message"
	}
	ce.Write(fields...)
	return nil
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.log.Sync()
}

func NewLogger(zapLogger *zap.Logger, opts ...Option) *Logger {
	l := &Logger{log: zapLogger, msgKey: log.DefaultMessageKey}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewLoggerWithConfig 按配置创建控制台 + 文件输出
func NewLoggerWithConfig(cfg *Config, opts ...Option) *Logger {
	return NewLogger(NewZapLogger(cfg), opts...)
}

func NewZapLogger(cfg *Config) *zap.Logger {
	if cfg == nil {
		_, _ = fmt.Fprintln(os.Stderr, "logger: using default development logger with nil config")
	}
	c := cfg.withDefaults()

	lv := zap.NewAtomicLevel()
	if err := lv.UnmarshalText([]byte(c.Level)); err != nil {
		lv.SetLevel(zapcore.DebugLevel)
		_, _ = fmt.Fprintf(os.Stderr, "logger: invalid log level %q, defaulting to DEBUG\n", c.Level)
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), zapcore.Lock(os.Stdout), lv),
	}
	if c.File || c.Mode == Prod {
		base := filepath.Join(c.Dir, c.App)
		cores = append(cores,
			c.fileCore(base+".log", lv),
			c.fileCore(base+"_error.log", zap.ErrorLevel),
		)
	}
	// kratos Helper 与 Logger.Log 两层
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))
}

func (c *Config) fileCore(file string, lv zapcore.LevelEnabler) zapcore.Core {
	w := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   true,
	}
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(false)), zapcore.AddSync(w), lv)
}

func encoderConfig(color bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + t.Format(timeFmt) + "]")
	}
	cfg.EncodeCaller = zapcore.FullCallerEncoder
	cfg.ConsoleSeparator = " "
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg
}
