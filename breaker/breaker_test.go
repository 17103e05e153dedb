package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/anchor/xerrors"
)

var errBoom = xerrors.New("boom")

func newTestBreaker(t *testing.T, cfg *Config, opts ...Option) *circuitBreaker {
	t.Helper()

	b, err := New("test-dep", cfg, opts...)
	require.NoError(t, err)
	return b.(*circuitBreaker)
}

// fakeClock 可拨动的测试时钟
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestBreaker_FailureThreshold(t *testing.T) {
	cb := newTestBreaker(t, &Config{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: time.Minute})

	t.Run("阈值前一次失败仍然放行", func(t *testing.T) {
		cb.RecordFailure(errBoom)
		cb.RecordFailure(errBoom)
		assert.True(t, cb.CanExecute().Allowed)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("达到阈值后熔断", func(t *testing.T) {
		cb.RecordFailure(errBoom)
		d := cb.CanExecute()
		assert.False(t, d.Allowed)
		assert.Greater(t, d.RetryAfter, time.Duration(0))
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("闭合状态下成功清零失败计数", func(t *testing.T) {
		cb := newTestBreaker(t, &Config{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: time.Minute})
		cb.RecordFailure(errBoom)
		cb.RecordFailure(errBoom)
		cb.RecordSuccess()
		assert.Equal(t, 0, cb.Snapshot().ConsecutiveFailures)

		// 计数已清零，还需要完整的三次失败才会熔断
		cb.RecordFailure(errBoom)
		cb.RecordFailure(errBoom)
		assert.Equal(t, StateClosed, cb.State())
		cb.RecordFailure(errBoom)
		assert.Equal(t, StateOpen, cb.State())
	})
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cb := newTestBreaker(t, &Config{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 50 * time.Millisecond})
	cb.now = clock.Now

	cb.RecordFailure(errBoom)
	require.Equal(t, StateOpen, cb.State())

	t.Run("冷却未到期时拒绝并返回剩余时间", func(t *testing.T) {
		clock.Advance(20 * time.Millisecond)
		d := cb.CanExecute()
		require.False(t, d.Allowed)
		assert.InDelta(t, float64(30*time.Millisecond), float64(d.RetryAfter), float64(time.Millisecond))
	})

	t.Run("冷却到期后放行并切换到半开", func(t *testing.T) {
		clock.Advance(40 * time.Millisecond)
		d := cb.CanExecute()
		assert.True(t, d.Allowed)
		assert.Equal(t, StateHalfOpen, cb.State())
	})

	t.Run("半开下连续成功达到阈值后闭合", func(t *testing.T) {
		cb.RecordSuccess()
		assert.Equal(t, StateHalfOpen, cb.State())
		cb.RecordSuccess()
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, 0, cb.Snapshot().ConsecutiveFailures)
	})
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cb := newTestBreaker(t, &Config{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: 50 * time.Millisecond})
	cb.now = clock.Now

	for i := 0; i < 3; i++ {
		cb.RecordFailure(errBoom)
	}
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(60 * time.Millisecond)
	require.True(t, cb.CanExecute().Allowed)
	require.Equal(t, StateHalfOpen, cb.State())

	// 半开下单次失败立即重新打开，且失败计数清零（而不是保留熔断前的计数）
	cb.RecordFailure(errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 0, cb.Snapshot().ConsecutiveFailures)
}

func TestBreaker_OpenIsNoOpForRecords(t *testing.T) {
	cb := newTestBreaker(t, &Config{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Minute})

	cb.RecordFailure(errBoom)
	require.Equal(t, StateOpen, cb.State())
	before := cb.Snapshot()

	// 打开状态下迟到的成功/失败结果不参与统计
	cb.RecordSuccess()
	cb.RecordFailure(errBoom)

	after := cb.Snapshot()
	assert.Equal(t, StateOpen, after.State)
	assert.Equal(t, before.Counters.Failed, after.Counters.Failed)
	assert.Equal(t, before.ConsecutiveFailures, after.ConsecutiveFailures)
}

// 规格场景：{failureThreshold:3, successThreshold:2, openTimeout:50ms}
// 3 次失败 ⇒ OPEN；60ms 后 CanExecute ⇒ 放行且状态为 HALF_OPEN；2 次成功 ⇒ CLOSED
func TestBreaker_FullCycleScenario(t *testing.T) {
	cb := newTestBreaker(t, &Config{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		cb.RecordFailure(errBoom)
	}
	require.Equal(t, StateOpen, cb.State())
	require.False(t, cb.CanExecute().Allowed)

	time.Sleep(60 * time.Millisecond)

	d := cb.CanExecute()
	require.True(t, d.Allowed)
	require.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("成功执行并记录", func(t *testing.T) {
		cb := newTestBreaker(t, nil)
		err := cb.Execute(ctx, func(ctx context.Context) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, int64(1), cb.Snapshot().Counters.Success)
	})

	t.Run("拒绝时返回 OpenError", func(t *testing.T) {
		cb := newTestBreaker(t, &Config{FailureThreshold: 1, OpenTimeout: time.Minute})
		cb.RecordFailure(errBoom)

		err := cb.Execute(ctx, func(ctx context.Context) error { return nil })
		require.Error(t, err)
		assert.True(t, IsOpen(err))

		var oe *OpenError
		require.True(t, xerrors.As(err, &oe))
		assert.Equal(t, "test-dep", oe.Name)
		assert.Greater(t, oe.RetryAfter, time.Duration(0))
	})

	t.Run("拒绝时执行降级函数", func(t *testing.T) {
		fallbackCalled := false
		cb := newTestBreaker(t, &Config{FailureThreshold: 1, OpenTimeout: time.Minute},
			WithFallback(func(ctx context.Context, name string, err error) error {
				fallbackCalled = true
				assert.True(t, IsOpen(err))
				return nil
			}))
		cb.RecordFailure(errBoom)

		err := cb.Execute(ctx, func(ctx context.Context) error { return nil })
		assert.NoError(t, err)
		assert.True(t, fallbackCalled)
	})

	t.Run("失败时记录并透传", func(t *testing.T) {
		cb := newTestBreaker(t, nil)
		err := cb.Execute(ctx, func(ctx context.Context) error { return errBoom })
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, cb.Snapshot().ConsecutiveFailures)
	})
}

func TestBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(t, &Config{FailureThreshold: 1, OpenTimeout: time.Minute})
	cb.RecordFailure(errBoom)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.CanExecute().Allowed)
	assert.Equal(t, Counters{Total: 1}, cb.Snapshot().Counters)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", nil)
	assert.ErrorIs(t, err, ErrNameEmpty)

	b, err := New("dep", nil)
	require.NoError(t, err)
	snap := b.Snapshot()
	assert.Equal(t, "dep", snap.Name)
	assert.Equal(t, StateClosed, snap.State)
}
