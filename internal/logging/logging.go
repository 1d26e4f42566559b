// Package logging builds the structured logger threaded through every
// long-running component, and a thin human-readable progress wrapper for
// the CLI's --verbose stderr trace.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger. encoding is "console" (TTY-friendly) or "json"
// (service/container deployments). level is one of debug/info/warn/error.
func New(level, encoding string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// Progress reports collection status to stderr for interactive use,
// mirroring the teacher's output.Progress but backed by the shared logger.
type Progress struct {
	log     *zap.Logger
	enabled bool
	start   time.Time
}

// NewProgress creates a Progress reporter. With enabled=false, Log does nothing.
func NewProgress(log *zap.Logger, enabled bool) *Progress {
	return &Progress{log: log, enabled: enabled, start: time.Now()}
}

// Log emits an info-level progress message if enabled.
func (p *Progress) Log(msg string, fields ...zap.Field) {
	if !p.enabled {
		return
	}
	elapsed := time.Since(p.start).Round(time.Millisecond)
	p.log.Info(msg, append(fields, zap.Duration("elapsed", elapsed))...)
}
