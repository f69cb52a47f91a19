// Package logging provides categorized zap loggers for the CI tools.
// Logs always go to stderr; stdout is reserved for tool reports.
// Until Initialize is called every category resolves to a no-op logger,
// so library code and tests stay quiet by default.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // CLI startup, config loading
	CategoryTactile Category = "tactile" // External process execution (nm, git)
	CategorySymbols Category = "symbols" // Symbol export guard
	CategorySync    Category = "sync"    // Shallow dependency synchronizer
)

var (
	root      = zap.NewNop()
	loggers   = make(map[Category]*zap.Logger)
	loggersMu sync.RWMutex
)

// Initialize builds the root logger from a level ("debug", "info", "warn",
// "error") and a format ("json" or "console") and installs it.
func Initialize(level, format string) (*zap.Logger, error) {
	l, err := Build(level, format)
	if err != nil {
		return nil, err
	}
	SetRoot(l)
	return l, nil
}

// Build constructs a stderr logger without installing it.
func Build(level, format string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console", "text":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

// ParseLevel maps a config level string onto a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// SetRoot replaces the root logger and drops cached category loggers.
// A nil logger resets to no-op.
func SetRoot(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggersMu.Lock()
	defer loggersMu.Unlock()
	root = l
	loggers = make(map[Category]*zap.Logger)
}

// Get returns (or creates) the named logger for a category.
func Get(category Category) *zap.Logger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := root.Named(string(category))
	loggers[category] = l
	return l
}

// Sync flushes the root logger. Errors from syncing stderr are ignored.
func Sync() {
	loggersMu.RLock()
	l := root
	loggersMu.RUnlock()
	_ = l.Sync()
}
