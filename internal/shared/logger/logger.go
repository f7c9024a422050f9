// Package logger builds the zap logger used on both sides of the wire.
// Instances are constructed here and passed down explicitly; there is no
// package-level global to swap out in tests.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production-encoded logger at the given level
// ("debug", "info", "warn", "error").
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Nop returns a logger that discards everything. Handy default for tests
// and for callers that did not wire logging.
func Nop() *zap.Logger {
	return zap.NewNop()
}
