// Package logger builds the application zap logger from the logging config.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PixPMusic/gopher-instruments/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleDestination writes logs to stderr.
const ConsoleDestination = "console"

// New returns a logger writing at cfg.Level to the console or to the file
// named by cfg.Destination. Empty fields take the info/console defaults.
func New(cfg config.Logging) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Encoding) {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log encoding %q", cfg.Encoding)
	}

	var sink zapcore.WriteSyncer
	switch cfg.Destination {
	case "", ConsoleDestination:
		sink = zapcore.Lock(os.Stderr)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Destination), 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.Destination, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.Lock(f)
	}

	core := zapcore.NewCore(enc, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}
