// Package logging builds the zap logger shared by every component: a
// JSON core writing to a rotating log file, teed with an optional
// console core.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	// LogDir is the directory that holds mcpfinder.log. Empty disables
	// file logging (console only).
	LogDir string
	// Level is the minimum level written to both cores.
	Level zapcore.Level
	// Console, when true, also writes human-readable logs to stderr.
	Console bool
}

// New builds a *zap.Logger from opts. File output is JSON-encoded and
// rotated by lumberjack; console output, if enabled, uses zap's
// development console encoder.
func New(opts Options) (*zap.Logger, error) {
	var cores []zapcore.Core

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, err
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.LogDir, "mcpfinder.log"),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(fileEncoder, writer, opts.Level))
	}

	if opts.Console || len(cores) == 0 {
		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), opts.Level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller()), nil
}

// Nop returns a logger that discards everything, for tests.
func Nop() *zap.Logger { return zap.NewNop() }
