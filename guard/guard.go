// Package guard 提供了对外部依赖调用的统一韧性入口。
//
// guard 组合 breaker 与 retry，把"熔断 + 重试 + 单次尝试超时"打包成
// 一次函数调用，业务代码只需要声明依赖名：
//
//	g, _ := guard.New(&guard.Config{
//		Profiles: map[string]guard.Profile{
//			"whatsapp": {
//				Breaker: breaker.Config{FailureThreshold: 3, OpenTimeout: 60 * time.Second},
//				Retry:   guard.RetryConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond},
//				AttemptTimeout: 10 * time.Second,
//			},
//		},
//	}, guard.WithLogger(logger))
//
//	resp, err := guard.Call(ctx, g, "whatsapp", func(ctx context.Context) (*Resp, error) {
//		return client.SendMessage(ctx, msg)
//	})
//
// ## 依赖调优
//
// 不同依赖的策略独立：消息通道用低失败阈值加长冷却；存储类依赖的
// OpenTimeout 必须大于其请求超时；未声明的依赖使用 Default Profile。
//
// ## 超时语义
//
// AttemptTimeout 通过 context 截止时间传给 fn，计时器先到时返回
// ErrTimeout。fn 必须尊重 ctx 取消；不尊重的 fn 会在后台继续运行
// 直到自行结束，guard 不强杀 goroutine。
package guard

import (
	"context"
	"time"

	"github.com/ceyewan/anchor/breaker"
	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/metrics"
	"github.com/ceyewan/anchor/retry"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Guard 韧性调用入口接口
type Guard interface {
	// Do 以 dep 的策略执行 fn（熔断 + 重试 + 单次尝试超时）
	Do(ctx context.Context, dep string, fn func(ctx context.Context) error) error

	// Breakers 返回熔断器注册表，供管理端观测与测试复位
	Breakers() *breaker.Registry
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// RetryConfig 依赖级重试配置
type RetryConfig struct {
	// MaxAttempts 最大尝试次数，包含首次执行（默认：3）
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay 首次重试的基础退避时间（默认：200ms）
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay 退避时间上限（默认：5s）
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
}

// Profile 单个依赖的完整韧性策略
type Profile struct {
	// Breaker 熔断配置
	Breaker breaker.Config `json:"breaker" yaml:"breaker"`

	// Retry 重试配置
	Retry RetryConfig `json:"retry" yaml:"retry"`

	// AttemptTimeout 单次尝试的超时（0 表示不限制）
	AttemptTimeout time.Duration `json:"attempt_timeout" yaml:"attempt_timeout"`
}

// Config guard 配置
type Config struct {
	// Default 未声明依赖的缺省策略
	Default Profile `json:"default" yaml:"default"`

	// Profiles 按依赖名覆盖策略
	Profiles map[string]Profile `json:"profiles" yaml:"profiles"`
}

// profileFor 返回依赖对应的策略
func (c *Config) profileFor(dep string) Profile {
	if p, ok := c.Profiles[dep]; ok {
		return p
	}
	return c.Default
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建 Guard 实例
//
// 参数:
//   - cfg: 依赖策略配置，nil 时全部使用缺省策略
//   - opts: 可选参数 (Logger, Meter, Classifier)
func New(cfg *Config, opts ...Option) (Guard, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfgCopy := *cfg

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	} else {
		logger = logger.With(clog.String("component", "guard"))
	}
	meter := opt.meter
	if meter == nil {
		meter = metrics.Noop()
	}
	classify := opt.classify
	if classify == nil {
		classify = retry.DefaultClassifier
	}

	registryOpts := []breaker.Option{breaker.WithLogger(opt.logger)}
	if opt.meter != nil {
		registryOpts = append(registryOpts, breaker.WithMeter(opt.meter))
	}

	g := &guardImpl{
		cfg:      &cfgCopy,
		registry: breaker.NewRegistry(nil, registryOpts...),
		logger:   logger,
		meter:    meter,
		classify: classify,
	}
	g.calls, _ = meter.Counter(MetricCalls, "Guarded dependency calls")
	g.duration, _ = meter.Histogram(MetricDuration, "Guarded call duration", metrics.WithUnit("s"))
	return g, nil
}

// Call 以 dep 的策略执行带返回值的 fn
//
// Guard 接口之外的泛型便捷形式（接口方法不能有类型参数）。
func Call[T any](ctx context.Context, g Guard, dep string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, dep, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
