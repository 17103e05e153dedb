package guard

import (
	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger   clog.Logger
	meter    metrics.Meter
	classify func(error) bool
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("guard")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithClassifier 覆盖错误分类函数（默认 retry.DefaultClassifier）
func WithClassifier(classify func(error) bool) Option {
	return func(o *options) {
		o.classify = classify
	}
}
