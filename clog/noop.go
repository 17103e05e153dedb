package clog

import "context"

// Discard 返回一个丢弃所有日志的 Logger
// 用于测试或者组件未注入 Logger 的场合
func Discard() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Warn(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}
func (noopLogger) Fatal(string, ...Field) {}

func (noopLogger) DebugContext(context.Context, string, ...Field) {}
func (noopLogger) InfoContext(context.Context, string, ...Field)  {}
func (noopLogger) WarnContext(context.Context, string, ...Field)  {}
func (noopLogger) ErrorContext(context.Context, string, ...Field) {}
func (noopLogger) FatalContext(context.Context, string, ...Field) {}

func (n noopLogger) With(...Field) Logger          { return n }
func (n noopLogger) WithNamespace(...string) Logger { return n }
func (noopLogger) SetLevel(Level) error             { return nil }
func (noopLogger) Flush()                           {}
