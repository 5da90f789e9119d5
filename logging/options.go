package logging

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures NewLogger.
type Options struct {
	// Development switches the console to a colored, human-readable encoder
	// and lowers the default level to debug.
	Development bool

	// Level overrides the default level when set ("debug", "info", ...).
	Level string

	// FilePath is the rotated JSON log file. Empty disables file output.
	FilePath string

	// Rotation settings passed to lumberjack. Zero values use the defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

// Field names used in JSON output.
const (
	FieldTimestamp  = "timestamp"
	FieldLevel      = "level"
	FieldSource     = "source"
	FieldMessage    = "message"
	FieldCaller     = "caller"
	FieldStacktrace = "stacktrace"
)

// ParseLevel parses a level name case-insensitively, returning def for
// empty or unknown input.
func ParseLevel(s string, def zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return def
	}
}

func (o Options) level() zapcore.Level {
	def := zapcore.InfoLevel
	if o.Development {
		def = zapcore.DebugLevel
	}
	return ParseLevel(o.Level, def)
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        FieldTimestamp,
		LevelKey:       FieldLevel,
		NameKey:        FieldSource,
		CallerKey:      FieldCaller,
		MessageKey:     FieldMessage,
		StacktraceKey:  FieldStacktrace,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := jsonEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("15:04:05.000"))
	}
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// newFileSyncer returns a rotating writer for path.
func newFileSyncer(o Options) zapcore.WriteSyncer {
	maxSize, backups, age := o.MaxSizeMB, o.MaxBackups, o.MaxAgeDays
	if maxSize == 0 {
		maxSize = DefaultMaxSizeMB
	}
	if backups == 0 {
		backups = DefaultMaxBackups
	}
	if age == 0 {
		age = DefaultMaxAgeDays
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   o.FilePath,
		MaxSize:    maxSize,
		MaxBackups: backups,
		MaxAge:     age,
		Compress:   true,
	})
}

// newTeeCore writes to console and, when a file syncer is given, to a JSON file.
func newTeeCore(level zapcore.Level, console, file zapcore.WriteSyncer, dev bool) zapcore.Core {
	var consoleEncoder zapcore.Encoder
	if dev {
		consoleEncoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, console, level)
	if file == nil {
		return consoleCore
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), file, level)
	return zapcore.NewTee(consoleCore, fileCore)
}

func stdoutSyncer() zapcore.WriteSyncer {
	return zapcore.Lock(os.Stdout)
}
