// Package logging wraps zap for the rest of pocket.
//
// Console output goes to stderr so it never mixes with the JSON the CLI
// prints on stdout. When a file is configured, records are also written
// there as JSON and rotated by lumberjack.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Modes accepted by New.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Options configures New.
type Options struct {
	// Mode is "development" (console encoder, debug level) or "production"
	// (JSON encoder, info level).
	Mode string

	// File receives a rotated JSON copy of every record. Empty disables it.
	File string

	// Console defaults to os.Stderr.
	Console io.Writer

	// Quiet drops console output; the file still gets everything.
	Quiet bool
}

// Logger is a sugared zap logger with key/value helpers.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// DefaultFile returns baseDir/logs/pocket.log.
func DefaultFile(baseDir string) string {
	return filepath.Join(baseDir, "logs", "pocket.log")
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	production := isProduction(opts.Mode)

	var cores []zapcore.Core

	if !opts.Quiet {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		var enc zapcore.Encoder
		level := zap.DebugLevel
		if production {
			enc = zapcore.NewJSONEncoder(fileEncoderConfig())
			level = zap.InfoLevel
		} else {
			enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(console)), level))
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig()),
			zapcore.AddSync(rotator),
			zap.InfoLevel,
		))
	}

	if len(cores) == 0 {
		return Nop(), nil
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{SugaredLogger: l.Sugar()}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func isProduction(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", ModeProduction:
		return true
	}
	return false
}

// Sync flushes buffered records.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

// With returns a child logger carrying keysAndValues on every record.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
