package idem

import (
	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/connector"
	"github.com/ceyewan/anchor/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	store  Store
	redis  connector.RedisConnector
	logger clog.Logger
	meter  metrics.Meter
}

// WithStore 注入自定义持久层，优先级高于 WithRedisConnector
func WithStore(store Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithRedisConnector 使用 Redis 作为持久层
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redis = conn
	}
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("idem")
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

// ========================================
// Check 选项 (Check Options)
// ========================================

// CheckOption Check 调用选项函数
type CheckOption func(*checkOptions)

type checkOptions struct {
	class string
}

func (c *checkOptions) classLabel() string {
	return classLabel(c.class)
}

// ForClass 声明事件所属类别，决定持久层故障时的 FailMode
func ForClass(class string) CheckOption {
	return func(o *checkOptions) {
		o.class = class
	}
}
