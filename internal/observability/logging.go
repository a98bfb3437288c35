// Package observability owns logger construction for the runner.
//
// Logs are teed to the console and to a rotating run log file so failures
// can be diagnosed after the fact on the compute node (the run log stays
// next to the solver artifacts).
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide structured logger. It defaults to a nop
// logger until Init is called so packages can log unconditionally.
var Logger = zap.NewNop()

// Options configures logger construction.
type Options struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string

	// File is the run log path. Empty disables file output.
	File string

	// Console enables human-readable output on stderr.
	Console bool
}

// Init builds the global logger. It is called once from the command
// layer before any work starts.
func Init(opts Options) error {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", opts.Level, err)
	}

	var cores []zapcore.Core

	if opts.File != "" {
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
		})
		cores = append(cores, zapcore.NewCore(fileEncoder, sink, level))
	}

	if opts.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		consoleEncoder := zapcore.NewConsoleEncoder(encCfg)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), level))
	}

	if len(cores) == 0 {
		Logger = zap.NewNop()
		return nil
	}

	Logger = zap.New(zapcore.NewTee(cores...))
	return nil
}

// Sync flushes buffered log entries. Safe to call on a nop logger.
func Sync() {
	_ = Logger.Sync()
}
