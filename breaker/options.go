package breaker

import (
	"context"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// FallbackFunc 降级函数类型
// 当熔断器拒绝请求或受保护函数失败时执行自定义降级逻辑
//
// 参数:
//   - ctx: 上下文
//   - name: 依赖名
//   - err: 原始错误（拒绝时是 *OpenError）
//
// 返回:
//   - error: 降级逻辑的错误，nil 表示降级成功
type FallbackFunc func(ctx context.Context, name string, err error) error

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger   clog.Logger
	meter    metrics.Meter
	fallback FallbackFunc
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithFallback 设置降级函数
func WithFallback(fallback FallbackFunc) Option {
	return func(o *options) {
		o.fallback = fallback
	}
}
