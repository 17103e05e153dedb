// Package breaker 提供了熔断器组件，用于外部依赖的故障隔离与自动恢复。
//
// breaker 是 Anchor 治理层的核心组件，它提供了：
// - 三态熔断状态机（CLOSED / OPEN / HALF_OPEN），按连续失败/成功计数驱动
// - 依赖级粒度的熔断管理（按依赖名独立熔断，Registry 统一持有）
// - 打开状态冷却到期后自动进入半开探测
// - 灵活的降级策略（快速失败或自定义降级逻辑）
// - 显式的 CanExecute / RecordSuccess / RecordFailure 契约，
//   供重试层只在最终结果处记录，避免重试次数污染阈值统计
//
// ## 基本使用
//
//	brk, _ := breaker.New("whatsapp", &breaker.Config{
//		FailureThreshold: 3,
//		SuccessThreshold: 2,
//		OpenTimeout:      30 * time.Second,
//	}, breaker.WithLogger(logger))
//
//	err := brk.Execute(ctx, func(ctx context.Context) error {
//		return client.SendMessage(ctx, msg)
//	})
//
// ## 手动驱动（供 retry 组件组合使用）
//
//	if d := brk.CanExecute(); !d.Allowed {
//		return &breaker.OpenError{Name: brk.Name(), Reason: d.Reason, RetryAfter: d.RetryAfter}
//	}
//	err := fn()
//	if err != nil {
//		brk.RecordFailure(err)
//	} else {
//		brk.RecordSuccess()
//	}
//
// ## 依赖级调优
//
// 关键的消息通道依赖使用低失败阈值加长冷却时间；存储类依赖的冷却时间
// 必须大于其自身的请求超时，否则超时请求会在半开探测时制造假阴性。
package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/anchor/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Breaker 熔断器核心接口
type Breaker interface {
	// Name 返回熔断器对应的依赖名
	Name() string

	// CanExecute 判断当前是否允许执行
	//
	// OPEN 状态下如果冷却已到期，会作为副作用将状态切换为 HALF_OPEN
	// 再放行；未到期则拒绝并携带剩余等待时间。
	// HALF_OPEN 状态下总是放行（不限制探测并发，见包文档的已知限制）。
	CanExecute() Decision

	// RecordSuccess 记录一次成功
	// HALF_OPEN 下累计连续成功，达到阈值后闭合；CLOSED 下清零连续失败计数；
	// OPEN 下是 no-op。
	RecordSuccess()

	// RecordFailure 记录一次失败
	// CLOSED 下累计连续失败，达到阈值后打开；HALF_OPEN 下任意失败立即重新
	// 打开（并先清零失败计数，避免跨周期累积）；OPEN 下是 no-op。
	RecordFailure(err error)

	// Execute 执行受熔断保护的函数
	// 被拒绝时执行降级函数（如果配置了），否则返回 *OpenError；
	// fn 的成功/失败会被记录到状态机。
	Execute(ctx context.Context, fn func(ctx context.Context) error) error

	// State 返回当前状态（只读，不触发状态迁移）
	State() State

	// Snapshot 返回可观测状态快照
	Snapshot() Snapshot

	// Reset 强制回到初始 CLOSED 状态，仅用于测试和管理端
	Reset()
}

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常放行）
	StateClosed State = iota
	// StateOpen 打开状态（熔断中，快速失败）
	StateOpen
	// StateHalfOpen 半开状态（探测恢复）
	StateHalfOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Decision CanExecute 的判定结果
type Decision struct {
	// Allowed 是否放行
	Allowed bool

	// Reason 拒绝原因（仅拒绝时有值）
	Reason string

	// RetryAfter 距离下次允许探测的剩余时间（仅拒绝时有值）
	RetryAfter time.Duration
}

// Counters 累计计数器
type Counters struct {
	Total    int64 `json:"total"`
	Success  int64 `json:"success"`
	Failed   int64 `json:"failed"`
	Rejected int64 `json:"rejected"`
}

// Snapshot 熔断器可观测快照，供管理端和测试使用
type Snapshot struct {
	Name                 string    `json:"name"`
	State                State     `json:"-"`
	StateName            string    `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	NextAttemptAt        time.Time `json:"next_attempt_at,omitzero"`
	LastStateChangeAt    time.Time `json:"last_state_change_at"`
	Counters             Counters  `json:"counters"`
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 熔断器配置
type Config struct {
	// FailureThreshold 连续失败阈值（默认：5）
	// CLOSED 状态下连续失败达到该值后熔断
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold"`

	// SuccessThreshold 连续成功阈值（默认：2）
	// HALF_OPEN 状态下连续成功达到该值后闭合
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold"`

	// OpenTimeout 打开状态持续时间（默认：30s）
	// 到期后下一次 CanExecute 进入半开探测
	OpenTimeout time.Duration `json:"open_timeout" yaml:"open_timeout"`
}

func (c *Config) setDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建熔断器实例
// 这是标准的工厂函数，支持在不依赖 Registry 的情况下独立实例化
//
// 参数:
//   - name: 依赖名（如 "whatsapp", "docusign", "storage"）
//   - cfg: 熔断器配置，nil 时使用默认配置
//   - opts: 可选参数 (Logger, Meter, Fallback)
func New(name string, cfg *Config, opts ...Option) (Breaker, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}

	if cfg == nil {
		cfg = &Config{}
	}
	cfgCopy := *cfg
	cfgCopy.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger != nil {
		logger = logger.With(clog.String("component", "breaker"), clog.String("dep", name))
	}

	return newBreaker(name, &cfgCopy, logger, opt.meter, opt.fallback), nil
}
