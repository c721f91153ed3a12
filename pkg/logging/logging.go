// Package logging builds the zap loggers used for diagnostics.
// Reports go to stdout through the output package; logs never do.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ccollicutt/authburst/pkg/config"
	"github.com/ccollicutt/authburst/pkg/parser"
)

// New creates a logger from cfg. Logs go to stderr in console format unless
// cfg.File is set, in which case they are written as JSON to a rotated file.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
		}
		level = lvl
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var core zapcore.Core
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		core = zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			level,
		)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(zapcore.AddSync(stderr)),
			level,
		)
	}

	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)).Named("authburst"), nil
}

// FailureLogger returns an observer that logs each unparseable line at warn
// level.
func FailureLogger(logger *zap.Logger) parser.FailureObserver {
	return parser.FailureObserverFunc(func(f *parser.ParseFailure) {
		logger.Warn("skipping unparseable line",
			zap.String("source", f.Source),
			zap.Int("line", f.LineNum),
			zap.String("raw", f.Line),
			zap.Error(f.Err),
		)
	})
}
