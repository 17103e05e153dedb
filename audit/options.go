package audit

import (
	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("audit")
		}
	}
}

// WithMeter 设置 Meter，传入 nil 时使用 metrics.Noop()
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter == nil {
			o.meter = metrics.Noop()
		} else {
			o.meter = meter
		}
	}
}
