// Package retry 提供了带指数退避与抖动的通用重试执行器。
//
// retry 是 Anchor 治理层组件，与 breaker 组合构成对外部依赖调用的
// 完整韧性策略：
// - 指数退避：delay = min(BaseDelay * 2^attempt, MaxDelay)
// - 均匀抖动：在退避基础上叠加 U(0, 0.25*delay)，避免重试风暴同步
// - 错误分类：只重试可恢复错误（连接类错误、HTTP 429/5xx）
// - 熔断联动：每次尝试前询问熔断器；熔断器只记录最终结果，
//   中间的可重试失败不计入阈值统计
//
// ## 基本使用
//
//	resp, err := retry.Do(ctx, retry.Policy{
//		MaxAttempts: 3,
//		BaseDelay:   200 * time.Millisecond,
//		MaxDelay:    5 * time.Second,
//	}, func(ctx context.Context) (*Response, error) {
//		return client.Send(ctx, req)
//	})
//
// ## 与熔断器组合
//
//	policy := retry.Policy{
//		MaxAttempts: 3,
//		BaseDelay:   200 * time.Millisecond,
//		MaxDelay:    5 * time.Second,
//		Breaker:     registry.Get("whatsapp", nil),
//	}
//	err := retry.Run(ctx, policy, func(ctx context.Context) error {
//		return client.SendMessage(ctx, msg)
//	})
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ceyewan/anchor/breaker"
)

// Policy 重试策略
type Policy struct {
	// MaxAttempts 最大尝试次数，包含首次执行（默认：3）
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay 首次重试的基础退避时间（默认：200ms）
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay 退避时间上限，抖动前生效（默认：5s）
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// Classify 错误分类函数，返回 true 表示可重试
	// nil 时使用 DefaultClassifier
	Classify func(error) bool `json:"-" yaml:"-"`

	// Breaker 可选的熔断器
	// 每次尝试前调用 CanExecute，被拒绝时立即返回 *breaker.OpenError，
	// 不消耗尝试次数也不退避；成功或最终失败各记录一次
	Breaker breaker.Breaker `json:"-" yaml:"-"`
}

func (p *Policy) setDefaults() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 200 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Classify == nil {
		p.Classify = DefaultClassifier
	}
}

// Do 按策略执行 fn 并返回其结果
//
// 行为契约：
//   - 熔断器拒绝 ⇒ 立即返回 *breaker.OpenError（不计尝试、不退避）
//   - fn 成功 ⇒ 记录熔断成功并返回
//   - 不可重试错误或尝试耗尽 ⇒ 记录熔断失败并返回最后一个错误
//   - 可重试错误 ⇒ 退避后重试，不向熔断器记录中间失败
//   - 退避等待期间 ctx 取消 ⇒ 返回 ctx.Err()
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	policy.setDefaults()

	for attempt := 0; ; attempt++ {
		if policy.Breaker != nil {
			if d := policy.Breaker.CanExecute(); !d.Allowed {
				return zero, &breaker.OpenError{
					Name:       policy.Breaker.Name(),
					Reason:     d.Reason,
					RetryAfter: d.RetryAfter,
				}
			}
		}

		v, err := fn(ctx)
		if err == nil {
			if policy.Breaker != nil {
				policy.Breaker.RecordSuccess()
			}
			return v, nil
		}

		if !policy.Classify(err) || attempt >= policy.MaxAttempts-1 {
			if policy.Breaker != nil {
				policy.Breaker.RecordFailure(err)
			}
			return zero, err
		}

		delay := Backoff(policy.BaseDelay, policy.MaxDelay, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
}

// Run 是 Do 的无返回值便捷形式
func Run(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Backoff 计算第 attempt 次重试前的退避时间（从 0 计）
// 结果满足 delay <= max * 1.25
func Backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max || d <= 0 { // 溢出保护
			d = max
			break
		}
	}
	if d > max {
		d = max
	}

	jitter := time.Duration(rand.Float64() * 0.25 * float64(d))
	return d + jitter
}
