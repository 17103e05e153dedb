package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/metrics"
)

// circuitBreaker 熔断器实现（非导出）
//
// 状态读取、判定、状态写入在同一临界区内完成，中间不产生任何 I/O，
// 保证 check-then-act 序列无竞态。跨实例部署时各实例独立统计，
// 准确性是近似的（设计取舍，见 SPEC 的并发模型）。
type circuitBreaker struct {
	name     string
	cfg      *Config
	logger   clog.Logger
	meter    metrics.Meter
	fallback FallbackFunc

	// now 可注入时钟，测试用
	now func() time.Time

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	nextAttemptAt        time.Time
	lastStateChangeAt    time.Time
	counters             Counters
}

func newBreaker(
	name string,
	cfg *Config,
	logger clog.Logger,
	meter metrics.Meter,
	fallback FallbackFunc,
) *circuitBreaker {
	cb := &circuitBreaker{
		name:     name,
		cfg:      cfg,
		logger:   logger,
		meter:    meter,
		fallback: fallback,
		now:      time.Now,
		state:    StateClosed,
	}
	cb.lastStateChangeAt = cb.now()

	if logger != nil {
		logger.Info("circuit breaker created",
			clog.Int("failure_threshold", cfg.FailureThreshold),
			clog.Int("success_threshold", cfg.SuccessThreshold),
			clog.Duration("open_timeout", cfg.OpenTimeout))
	}
	return cb
}

func (cb *circuitBreaker) Name() string {
	return cb.name
}

// CanExecute 判断是否放行
// OPEN 冷却到期时在此处切换为 HALF_OPEN（副作用），与判定在同一临界区
func (cb *circuitBreaker) CanExecute() Decision {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counters.Total++

	switch cb.state {
	case StateClosed:
		return Decision{Allowed: true}

	case StateHalfOpen:
		return Decision{Allowed: true}

	case StateOpen:
		now := cb.now()
		if now.Before(cb.nextAttemptAt) {
			cb.counters.Rejected++
			return Decision{
				Allowed:    false,
				Reason:     "circuit open",
				RetryAfter: cb.nextAttemptAt.Sub(now),
			}
		}
		cb.transitionLocked(StateHalfOpen)
		return Decision{Allowed: true}

	default:
		return Decision{Allowed: true}
	}
}

// RecordSuccess 记录一次成功结果
func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counters.Success++

	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures = 0

	case StateHalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.cfg.SuccessThreshold {
			cb.consecutiveFailures = 0
			cb.consecutiveSuccesses = 0
			cb.transitionLocked(StateClosed)
		}

	case StateOpen:
		// 打开状态下的迟到成功不参与统计
	}
}

// RecordFailure 记录一次失败结果
func (cb *circuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.counters.Failed++
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.openLocked(err)
		}

	case StateHalfOpen:
		cb.counters.Failed++
		// 先清零，避免上一轮 CLOSED 期间的失败计数跨周期累积
		cb.consecutiveFailures = 0
		cb.consecutiveSuccesses = 0
		cb.openLocked(err)

	case StateOpen:
		// 已打开，不重复计数
	}
}

// openLocked 进入 OPEN 状态并设置下次探测时间，调用方必须持锁
func (cb *circuitBreaker) openLocked(err error) {
	cb.nextAttemptAt = cb.now().Add(cb.cfg.OpenTimeout)
	cb.transitionLocked(StateOpen)

	if cb.logger != nil {
		cb.logger.Warn("circuit breaker opened",
			clog.Time("next_attempt_at", cb.nextAttemptAt),
			clog.Error(err))
	}
}

// transitionLocked 状态迁移，调用方必须持锁
func (cb *circuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.lastStateChangeAt = cb.now()

	if cb.logger != nil {
		cb.logger.Info("circuit breaker state changed",
			clog.String("from", from.String()),
			clog.String("to", to.String()))
	}

	if cb.meter != nil {
		counter, err := cb.meter.Counter(MetricStateChanges, "Circuit breaker state changes")
		if err == nil && counter != nil {
			counter.Inc(context.Background(),
				metrics.L(LabelDep, cb.name),
				metrics.L(LabelFromState, from.String()),
				metrics.L(LabelToState, to.String()))
		}
	}
}

// Execute 执行受熔断保护的函数
func (cb *circuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if d := cb.CanExecute(); !d.Allowed {
		rejection := &OpenError{Name: cb.name, Reason: d.Reason, RetryAfter: d.RetryAfter}
		if cb.logger != nil {
			cb.logger.WarnContext(ctx, "request rejected by circuit breaker",
				clog.Duration("retry_after", d.RetryAfter))
		}
		if cb.fallback != nil {
			return cb.fallback(ctx, cb.name, rejection)
		}
		return rejection
	}

	err := fn(ctx)
	if err != nil {
		cb.RecordFailure(err)
		if cb.fallback != nil {
			return cb.fallback(ctx, cb.name, err)
		}
		return err
	}

	cb.RecordSuccess()
	return nil
}

// State 返回当前状态，不触发 OPEN→HALF_OPEN 迁移
func (cb *circuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot 返回可观测状态快照
func (cb *circuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Snapshot{
		Name:                 cb.name,
		State:                cb.state,
		StateName:            cb.state.String(),
		ConsecutiveFailures:  cb.consecutiveFailures,
		ConsecutiveSuccesses: cb.consecutiveSuccesses,
		NextAttemptAt:        cb.nextAttemptAt,
		LastStateChangeAt:    cb.lastStateChangeAt,
		Counters:             cb.counters,
	}
}

// Reset 强制回到初始 CLOSED 状态
func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.nextAttemptAt = time.Time{}
	cb.lastStateChangeAt = cb.now()
	cb.counters = Counters{}
}
