package guard

import (
	"context"
	"errors"
	"time"

	"github.com/ceyewan/anchor/breaker"
	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/correlation"
	"github.com/ceyewan/anchor/metrics"
	"github.com/ceyewan/anchor/retry"
	"github.com/ceyewan/anchor/xerrors"
)

// guardImpl Guard 接口实现（非导出）
type guardImpl struct {
	cfg      *Config
	registry *breaker.Registry
	logger   clog.Logger
	meter    metrics.Meter
	classify func(error) bool

	calls    metrics.Counter
	duration metrics.Histogram
}

// Do 以 dep 的策略执行 fn
func (g *guardImpl) Do(ctx context.Context, dep string, fn func(ctx context.Context) error) error {
	if dep == "" {
		return ErrDepEmpty
	}

	profile := g.cfg.profileFor(dep)
	brk := g.registry.Get(dep, &profile.Breaker)

	policy := retry.Policy{
		MaxAttempts: profile.Retry.MaxAttempts,
		BaseDelay:   profile.Retry.BaseDelay,
		MaxDelay:    profile.Retry.MaxDelay,
		Classify:    g.classify,
		Breaker:     brk,
	}

	start := time.Now()
	err := retry.Run(ctx, policy, func(ctx context.Context) error {
		return g.attempt(ctx, dep, profile.AttemptTimeout, fn)
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	if g.calls != nil {
		g.calls.Inc(ctx, metrics.L(LabelDep, dep), metrics.L(LabelOutcome, outcome))
	}
	if g.duration != nil {
		g.duration.Record(ctx, time.Since(start).Seconds(), metrics.L(LabelDep, dep))
	}

	if err != nil {
		g.logger.WarnContext(ctx, "guarded call failed",
			append(correlation.LogFields(ctx),
				clog.String("dep", dep),
				clog.Duration("elapsed", time.Since(start)),
				clog.String("code", xerrors.GetCode(err)),
				clog.Error(err))...)
	}
	return err
}

// attempt 执行单次尝试，施加 AttemptTimeout
//
// 超时通过 ctx 截止时间传达给 fn；fn 不尊重取消时 guard 仍按超时返回
// ErrTimeout，fn 在后台运行到自行结束（结果被丢弃）。
func (g *guardImpl) attempt(ctx context.Context, dep string, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(attemptCtx)
	}()

	select {
	case err := <-done:
		// fn 尊重截止时间返回的 DeadlineExceeded 统一转换为 ErrTimeout
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return g.timeoutErr(ctx, dep, timeout)
		}
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			// 外层取消优先于尝试超时
			return ctx.Err()
		}
		return g.timeoutErr(ctx, dep, timeout)
	}
}

func (g *guardImpl) timeoutErr(ctx context.Context, dep string, timeout time.Duration) error {
	g.logger.WarnContext(ctx, "attempt timed out",
		clog.String("dep", dep),
		clog.Duration("timeout", timeout))
	return xerrors.Wrapf(ErrTimeout, "dep %s after %s", dep, timeout)
}

// Breakers 返回熔断器注册表
func (g *guardImpl) Breakers() *breaker.Registry {
	return g.registry
}
