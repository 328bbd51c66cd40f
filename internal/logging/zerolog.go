package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZeroLogger adapts zerolog to the Logger interface. It is the logger the
// harness runs with outside of tests.
type ZeroLogger struct {
	zl zerolog.Logger
}

// Options controls construction of a ZeroLogger.
type Options struct {
	// Component is attached to every line as a persistent field.
	Component string

	// Verbose enables debug-level output (request/response bodies).
	Verbose bool

	// FilePath, when non-empty, additionally writes log lines to a rolling
	// file at that path. Console output stays on regardless.
	FilePath string
}

// NewZeroLogger builds a ZeroLogger writing JSON lines to stderr, and to a
// size-rotated file when opts.FilePath is set.
func NewZeroLogger(opts Options) *ZeroLogger {
	var w io.Writer = os.Stderr
	if opts.FilePath != "" {
		_ = os.MkdirAll(filepath.Dir(opts.FilePath), 0755)
		rotated := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
		}
		w = io.MultiWriter(os.Stderr, rotated)
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	zl := zerolog.New(w).Level(level).With().Timestamp()
	if opts.Component != "" {
		zl = zl.Str("component", opts.Component)
	}

	return &ZeroLogger{zl: zl.Logger()}
}

func (z *ZeroLogger) emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

func (z *ZeroLogger) Debug(msg string, fields ...Field) {
	z.emit(z.zl.Debug(), msg, fields)
}

func (z *ZeroLogger) Info(msg string, fields ...Field) {
	z.emit(z.zl.Info(), msg, fields)
}

func (z *ZeroLogger) Warn(msg string, fields ...Field) {
	z.emit(z.zl.Warn(), msg, fields)
}

func (z *ZeroLogger) Error(msg string, fields ...Field) {
	z.emit(z.zl.Error(), msg, fields)
}

func (z *ZeroLogger) With(fields ...Field) Logger {
	ctx := z.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZeroLogger{zl: ctx.Logger()}
}
