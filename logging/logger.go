package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and redacts credentials from every field before
// it reaches a core. Output goes to the console and, when configured, to a
// rotated JSON file.
//
// Example:
//
//	logger, err := logging.NewLogger(logging.Options{Development: true, FilePath: "app.log"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Named("orchestrator").Info("generation started", zap.String("cache_key", key))
type Logger struct {
	zap         *zap.Logger
	development bool
}

// NewLogger builds a Logger from opts.
func NewLogger(opts Options) (*Logger, error) {
	var file zapcore.WriteSyncer
	if opts.FilePath != "" {
		if dir := filepath.Dir(opts.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("logging: create log directory: %w", err)
			}
		}
		file = newFileSyncer(opts)
	}

	core := newTeeCore(opts.level(), stdoutSyncer(), file, opts.Development)
	return &Logger{
		zap:         zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		development: opts.Development,
	}, nil
}

// NewFromZap wraps an existing zap logger, typically one from zaptest.
func NewFromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{zap: z.WithOptions(zap.AddCallerSkip(1))}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Fatal logs then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, redactFields(fields)...)
}

// Printf logs a formatted, redacted message at info level. It lets the
// Logger stand in for the printf-style loggers some components accept.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.zap.Info(RedactSensitiveData(fmt.Sprintf(format, args...)))
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(redactFields(fields)...), development: l.development}
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), development: l.development}
}

// Zap exposes the underlying logger for libraries that need a *zap.Logger.
// Fields logged through it are not redacted.
func (l *Logger) Zap() *zap.Logger {
	return l.zap.WithOptions(zap.AddCallerSkip(-1))
}

// IsDevelopment reports whether the logger was built in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.development
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	if err := l.zap.Sync(); err != nil && !isIgnorableSyncError(err) {
		return err
	}
	return nil
}

func isIgnorableSyncError(err error) bool {
	// stdout on a tty or pipe returns EINVAL/ENOTTY from fsync
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}

func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

func redactField(f zap.Field) zap.Field {
	if IsSensitiveField(f.Key) {
		return zap.String(f.Key, RedactedPlaceholder)
	}
	switch f.Type {
	case zapcore.StringType:
		if redacted := RedactSensitiveData(f.String); redacted != f.String {
			return zap.String(f.Key, redacted)
		}
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil {
			msg := err.Error()
			if redacted := RedactSensitiveData(msg); redacted != msg {
				return zap.String(f.Key, redacted)
			}
		}
	}
	return f
}
