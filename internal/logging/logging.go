// Package logging builds the daemon's zap.Logger, matching the
// teacher's NewDevelopmentConfig + zap.Must construction in
// cmd/zmux-server/main.go.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for the given level name (trace/debug/info/warn/
// error — "trace" maps to zap's Debug level, matching the original's
// five-level scheme since zap has no trace level of its own) and debug
// mode (enables caller + stacktrace annotations).
func New(level string, debug bool) (*zap.Logger, error) {
	zlevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zlevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = !debug
	cfg.DisableCaller = !debug

	return zap.Must(cfg.Build()), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "trace", "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", level)
	}
}
