// Package idem 提供了事件幂等组件，用于 webhook 等至少一次投递场景的去重。
//
// idem 采用两级结构：
// - 近期键缓存（进程内 otter 缓存）：热路径去重，避免重复投递风暴打到持久层
// - 持久层 Store（Redis 或进程内存）：跨实例、跨重启的幂等记录，带 TTL
//
// 每个键的判定结果包含是否重复以及重复投递次数（首次投递为 0），
// 持久层故障时按事件类别的 FailMode 决定放行（fail-open）还是拒绝（fail-closed）。
//
// ## 基本使用
//
//	guard, _ := idem.New(&idem.Config{TTL: 24 * time.Hour},
//		idem.WithRedisConnector(conn), idem.WithLogger(logger))
//	defer guard.Close()
//
//	res, err := guard.Check(ctx, "wamid.HBgL...")
//	if err != nil {
//		return err
//	}
//	if res.Duplicate {
//		return nil // 已处理过，直接确认
//	}
//
// ## 按事件类别设置故障策略
//
//	cfg := &idem.Config{
//		DefaultFailMode: idem.FailOpen,
//		Classes: map[string]idem.ClassPolicy{
//			"payment": {FailMode: idem.FailClosed},
//		},
//	}
//	res, err := guard.Check(ctx, key, idem.ForClass("payment"))
//
// fail-open 表示持久层不可用时当作首次投递放行（消息类事件宁可重复不可丢失）；
// fail-closed 表示当作重复拒绝（支付/签署类事件宁可丢弃不可重复执行）。
package idem

import (
	"context"
	"time"

	"github.com/ceyewan/anchor/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Guard 幂等守卫核心接口
type Guard interface {
	// Check 注册并判定一个事件键
	//
	// 首次见到该键时返回 Duplicate=false, DeliveryCount=0；
	// 之后每次重复投递 Duplicate=true，DeliveryCount 严格递增（1, 2, ...）。
	// 空键视为无法去重的事件，返回 ErrKeyEmpty。
	//
	// 持久层故障时不返回错误，而是按键所属类别的 FailMode 合成判定结果，
	// 并通过日志与指标暴露故障。
	Check(ctx context.Context, key string, opts ...CheckOption) (Result, error)

	// Forget 删除一个键的幂等记录，供处理失败后允许重投的场景使用
	Forget(ctx context.Context, key string) error

	// Close 释放近期键缓存等内部资源（幂等）
	Close() error
}

// Result 幂等判定结果
type Result struct {
	// Duplicate 是否为重复投递
	Duplicate bool `json:"duplicate"`

	// DeliveryCount 此前已投递的次数，首次投递为 0
	// fail-open/fail-closed 合成的结果中该值为 0，不可用于精确统计
	DeliveryCount int64 `json:"delivery_count"`
}

// FailMode 持久层故障时的判定策略
type FailMode string

const (
	// FailOpen 故障时放行（当作首次投递），适用于消息类事件
	FailOpen FailMode = "open"
	// FailClosed 故障时拒绝（当作重复投递），适用于支付、签署类事件
	FailClosed FailMode = "closed"
)

// ClassPolicy 事件类别策略
type ClassPolicy struct {
	FailMode FailMode `json:"fail_mode" yaml:"fail_mode"`
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 幂等守卫配置
type Config struct {
	// Prefix 持久层键前缀（默认："anchor:idem:"）
	Prefix string `json:"prefix" yaml:"prefix"`

	// TTL 幂等记录保留时长（默认：24h）
	// 应大于上游 webhook 的最大重投窗口
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// RecentCapacity 近期键缓存容量（默认：4096）
	RecentCapacity int `json:"recent_capacity" yaml:"recent_capacity"`

	// RecentTTL 近期键缓存保留时长（默认：5m）
	// 只影响热路径命中率，不影响判定正确性
	RecentTTL time.Duration `json:"recent_ttl" yaml:"recent_ttl"`

	// DefaultFailMode 未声明类别的故障策略（默认：FailOpen）
	DefaultFailMode FailMode `json:"default_fail_mode" yaml:"default_fail_mode"`

	// Classes 按事件类别覆盖故障策略
	Classes map[string]ClassPolicy `json:"classes" yaml:"classes"`
}

func (c *Config) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "anchor:idem:"
	}
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.RecentCapacity <= 0 {
		c.RecentCapacity = 4096
	}
	if c.RecentTTL <= 0 {
		c.RecentTTL = 5 * time.Minute
	}
	if c.DefaultFailMode == "" {
		c.DefaultFailMode = FailOpen
	}
}

func (c *Config) validate() error {
	c.setDefaults()
	if c.DefaultFailMode != FailOpen && c.DefaultFailMode != FailClosed {
		return ErrInvalidFailMode
	}
	for _, p := range c.Classes {
		if p.FailMode != FailOpen && p.FailMode != FailClosed {
			return ErrInvalidFailMode
		}
	}
	return nil
}

// failModeFor 返回类别对应的故障策略
func (c *Config) failModeFor(class string) FailMode {
	if p, ok := c.Classes[class]; ok {
		return p.FailMode
	}
	return c.DefaultFailMode
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建幂等守卫实例
//
// 持久层按优先级选择：WithStore > WithRedisConnector > 进程内存。
// 进程内存实现仅适用于单实例部署和测试。
//
// 参数:
//   - cfg: 幂等配置，nil 时使用默认配置
//   - opts: 可选参数 (Store, RedisConnector, Logger, Meter)
func New(cfg *Config, opts ...Option) (Guard, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfgCopy := *cfg
	if err := cfgCopy.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	store := opt.store
	if store == nil && opt.redis != nil {
		store = NewRedisStore(opt.redis, cfgCopy.Prefix, cfgCopy.TTL)
	}
	if store == nil {
		store = NewMemoryStore(cfgCopy.TTL)
	}

	logger := opt.logger
	if logger != nil {
		logger = logger.With(clog.String("component", "idem"))
	}

	return newGuard(&cfgCopy, store, logger, opt.meter)
}
