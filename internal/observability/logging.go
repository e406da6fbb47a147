// Package observability builds the realm's zap loggers and the gRPC
// logging interceptors.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/realm/internal/config"
)

// formats maps logging.format to its base zap configuration.
var formats = map[string]func() zap.Config{
	"json": zap.NewProductionConfig,
	"console": func() zap.Config {
		c := zap.NewDevelopmentConfig()
		c.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return c
	},
}

// NewLogger builds the process logger. Every entry carries a "node" field
// when node is non-empty.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, node string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	base, ok := formats[cfg.Format]
	if !ok {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zc := base()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if node != "" {
		zc.InitialFields = map[string]any{"node": node}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
