// Package monitoring owns the process-wide structured logger.
package monitoring

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// L returns the current logger. It is a no-op logger until SetLogger is called.
func L() *zap.Logger {
	return logger.Load()
}

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
// Tests or production code can redirect or mute it.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Logf logs a printf-style message at info level. It exists for libraries
// that expect a Printf-shaped logger.
func Logf(format string, v ...interface{}) {
	L().Info(fmt.Sprintf(format, v...))
}

// NewLogger builds a zap logger. Development mode writes human-readable
// console output; otherwise JSON is written to stderr.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	l, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}
