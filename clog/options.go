package clog

import "context"

// Option 组件初始化选项函数
type Option func(*options)

// ContextFunc 从 Context 中提取日志字段的函数
// 带 Context 的日志方法会调用所有注册的提取函数
type ContextFunc func(ctx context.Context) []Field

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	namespace    string
	contextFuncs []ContextFunc
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithNamespace 设置初始命名空间
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespace = joinNamespace("", parts)
	}
}

// WithContextFunc 注册 Context 字段提取函数
//
// 使用示例:
//
//	logger, _ := clog.New(cfg, clog.WithContextFunc(correlation.LogFields))
func WithContextFunc(fn ContextFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.contextFuncs = append(o.contextFuncs, fn)
		}
	}
}

func joinNamespace(base string, parts []string) string {
	ns := base
	for _, p := range parts {
		if p == "" {
			continue
		}
		if ns == "" {
			ns = p
		} else {
			ns = ns + "." + p
		}
	}
	return ns
}
