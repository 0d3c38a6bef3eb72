// Package logx builds the node's structured logger. Every subsystem gets
// its own named child logger via zap's structured fields rather than a
// string log-prefix convention.
package logx

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	Development bool
	Level       string
}

// New builds a root *zap.Logger from cfg. Callers derive per-component
// loggers with logger.Named("ledger"), .Named("elections"), and so on.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	if cfg.Development {
		zc := zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		return zc.Build()
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
