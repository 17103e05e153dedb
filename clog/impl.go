package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// logger Logger 接口的 slog 实现（非导出）
type logger struct {
	slog      *slog.Logger
	level     *slog.LevelVar
	namespace string
	opts      *options
	file      *os.File // 仅文件输出时非 nil，供 Flush 使用
}

func newLogger(cfg *Config, opts *options) (Logger, error) {
	var w io.Writer
	var file *os.File

	switch cfg.Output {
	case "stdout", "":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
		file = f
	}

	lvl, _ := ParseLevel(cfg.Level)
	levelVar := &slog.LevelVar{}
	levelVar.Set(lvl.toSlog())

	hopts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}

	l := &logger{
		slog:      slog.New(handler),
		level:     levelVar,
		namespace: opts.namespace,
		opts:      opts,
		file:      file,
	}
	return l, nil
}

func (l *logger) log(ctx context.Context, level Level, msg string, fields []Field) {
	attrs := make([]Field, 0, len(fields)+4)
	if l.namespace != "" {
		attrs = append(attrs, slog.String("namespace", l.namespace))
	}
	if ctx != nil {
		for _, fn := range l.opts.contextFuncs {
			attrs = append(attrs, fn(ctx)...)
		}
	}
	attrs = append(attrs, fields...)

	if ctx == nil {
		ctx = context.Background()
	}
	l.slog.LogAttrs(ctx, level.toSlog(), msg, attrs...)

	if level == FatalLevel {
		l.Flush()
		os.Exit(1)
	}
}

func (l *logger) Debug(msg string, fields ...Field) { l.log(nil, DebugLevel, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.log(nil, InfoLevel, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.log(nil, WarnLevel, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.log(nil, ErrorLevel, msg, fields) }
func (l *logger) Fatal(msg string, fields ...Field) { l.log(nil, FatalLevel, msg, fields) }

func (l *logger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *logger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *logger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *logger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *logger) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields)
}

func (l *logger) With(fields ...Field) Logger {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	clone := *l
	clone.slog = l.slog.With(args...)
	return &clone
}

func (l *logger) WithNamespace(parts ...string) Logger {
	clone := *l
	clone.namespace = joinNamespace(l.namespace, parts)
	return &clone
}

func (l *logger) SetLevel(level Level) error {
	l.level.Set(level.toSlog())
	return nil
}

func (l *logger) Flush() {
	if l.file != nil {
		_ = l.file.Sync()
	}
}
