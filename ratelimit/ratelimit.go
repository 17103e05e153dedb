// Package ratelimit 提供了限流组件，覆盖入站准入与出站节流两类场景。
//
// ratelimit 是 Anchor 治理层的核心组件，它提供了：
// - 统一的 Windowed 接口：固定窗口计数准入（每键每窗口最多 N 次）
// - 单机模式：进程内计数，带键基数上限与过期窗口清扫
// - 分布式模式：基于 Redis + Lua 的固定窗口，多副本共享配额
// - Pacer：基于 golang.org/x/time/rate 的出站节流（对外部 API 的调用整形）
// - 开箱即用的 Gin 中间件（429 + Retry-After + X-RateLimit-* 响应头）
// - 与 L0 基础组件（日志、指标）的深度集成
//
// ## 基本使用
//
//	limiter, _ := ratelimit.NewStandalone(&ratelimit.StandaloneConfig{
//		MaxEntries: 10000,
//	}, ratelimit.WithLogger(logger))
//	defer limiter.Close()
//
//	d, err := limiter.CheckAndConsume(ctx, "wa:5511999", ratelimit.Rule{
//		Limit:  30,
//		Window: time.Minute,
//	})
//	if err != nil || !d.Allowed {
//		// 拒绝，d.ResetAfter 为距窗口重置的剩余时间
//	}
//
// ## 分布式模式
//
//	redisConn, _ := connector.NewRedis(&cfg.Redis, connector.WithLogger(logger))
//	limiter, _ := ratelimit.NewDistributed(redisConn, &ratelimit.DistributedConfig{
//		Prefix: "anchor:ratelimit:",
//	}, ratelimit.WithLogger(logger))
//
// ## 出站节流
//
//	pacer := ratelimit.NewPacer(&ratelimit.PacerConfig{Rate: 80, Burst: 100})
//	if err := pacer.Wait(ctx, "whatsapp"); err != nil {
//		return err
//	}
//	provider.SendMessage(ctx, msg)
//
// ## 失败语义
//
// 单机模式的键基数达到上限且清扫后仍无空位时，新键被拒绝（fail-closed），
// 防止键爆炸耗尽内存；分布式模式 Redis 不可用时返回错误，由调用方决定
// 放行或拒绝（Gin 中间件默认放行，避免限流器故障放大为全站不可用）。
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/connector"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Rule 固定窗口限流规则
type Rule struct {
	// Limit 窗口内最大请求数
	Limit int64 `json:"limit" yaml:"limit"`

	// Window 窗口时长
	Window time.Duration `json:"window" yaml:"window"`
}

func (r Rule) valid() bool {
	return r.Limit > 0 && r.Window > 0
}

// Decision 限流判定结果
type Decision struct {
	// Allowed 是否放行
	Allowed bool `json:"allowed"`

	// Remaining 当前窗口剩余配额
	Remaining int64 `json:"remaining"`

	// ResetAfter 距当前窗口重置的剩余时间
	// 拒绝时即建议的重试等待时间（Retry-After）
	ResetAfter time.Duration `json:"reset_after"`
}

// Windowed 固定窗口限流器核心接口
type Windowed interface {
	// CheckAndConsume 消耗一次配额并返回判定结果
	//
	// 同一个键在同一个窗口内前 Limit 次调用放行，之后拒绝直到窗口重置。
	// error 仅表示系统性故障（存储不可用、键基数耗尽），正常的限流拒绝
	// 通过 Decision.Allowed=false 表达。
	CheckAndConsume(ctx context.Context, key string, rule Rule) (Decision, error)

	// Close 释放内部资源（幂等）
	Close() error
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// StandaloneConfig 单机限流配置
type StandaloneConfig struct {
	// MaxEntries 键基数上限（默认：10000）
	// 防止攻击者用随机键撑爆内存；达到上限后先清扫过期窗口，
	// 仍无空位时拒绝新键
	MaxEntries int `json:"max_entries" yaml:"max_entries"`

	// SweepInterval 后台清扫过期窗口的间隔（默认：1 分钟）
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`
}

func (c *StandaloneConfig) setDefaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 10000
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
}

// DistributedConfig 分布式限流配置
type DistributedConfig struct {
	// Prefix Redis Key 前缀（默认："anchor:ratelimit:"）
	Prefix string `json:"prefix" yaml:"prefix"`
}

func (c *DistributedConfig) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "anchor:ratelimit:"
	}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// NewStandalone 创建单机固定窗口限流器
//
// 参数:
//   - cfg: 单机限流配置，nil 时使用默认配置
//   - opts: 可选参数 (Logger, Meter)
func NewStandalone(cfg *StandaloneConfig, opts ...Option) (Windowed, error) {
	if cfg == nil {
		cfg = &StandaloneConfig{}
	}
	cfgCopy := *cfg
	cfgCopy.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger != nil {
		logger = logger.With(clog.String("component", "ratelimit"))
	}

	return newStandalone(&cfgCopy, logger, opt.meter), nil
}

// NewDistributed 创建分布式固定窗口限流器
//
// 参数:
//   - redisConn: Redis 连接器
//   - cfg: 分布式限流配置，nil 时使用默认配置
//   - opts: 可选参数 (Logger, Meter)
func NewDistributed(redisConn connector.RedisConnector, cfg *DistributedConfig, opts ...Option) (Windowed, error) {
	if redisConn == nil {
		return nil, ErrConnectorNil
	}

	if cfg == nil {
		cfg = &DistributedConfig{}
	}
	cfgCopy := *cfg
	cfgCopy.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger != nil {
		logger = logger.With(clog.String("component", "ratelimit"))
	}

	return newDistributed(&cfgCopy, redisConn, logger, opt.meter), nil
}
