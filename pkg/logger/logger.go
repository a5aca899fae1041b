package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

type Config struct {
	Env   string `env:"LOG_ENV" env-default:"production"`
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

type Logger struct {
	l *zap.Logger
}

// New builds a zap logger for cfg and stores it in ctx.
func New(ctx context.Context, cfg Config) (context.Context, error) {
	var zcfg zap.Config
	if cfg.Env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("error creating new logger: %w", err)
	}
	return WithLogger(ctx, &Logger{l}), nil
}

func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromZap wraps an existing zap logger, mostly zap.NewNop() in tests.
func FromZap(l *zap.Logger) *Logger {
	return &Logger{l}
}

// GetLogger returns the logger stored in ctx, or a no-op logger.
func GetLogger(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap.NewNop()}
}

func (logger *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{logger.l.With(fields...)}
}

func (logger *Logger) Debug(msg string, fields ...zap.Field) {
	logger.l.Debug(msg, fields...)
}

func (logger *Logger) Info(msg string, fields ...zap.Field) {
	logger.l.Info(msg, fields...)
}

func (logger *Logger) Warn(msg string, fields ...zap.Field) {
	logger.l.Warn(msg, fields...)
}

func (logger *Logger) Error(msg string, fields ...zap.Field) {
	logger.l.Error(msg, fields...)
}

func (logger *Logger) Fatal(msg string, fields ...zap.Field) {
	logger.l.Fatal(msg, fields...)
}

func (logger *Logger) Sync() error {
	return logger.l.Sync()
}
