package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg *StandaloneConfig) (*standaloneLimiter, *time.Time) {
	t.Helper()
	w, err := NewStandalone(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	l := w.(*standaloneLimiter)
	now := time.Now()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestStandalone_FixedWindow(t *testing.T) {
	l, now := newTestLimiter(t, nil)
	ctx := context.Background()
	rule := Rule{Limit: 3, Window: time.Minute}

	t.Run("窗口内恰好放行限额次数", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			d, err := l.CheckAndConsume(ctx, "wa:1", rule)
			require.NoError(t, err)
			assert.True(t, d.Allowed, "第 %d 次应放行", i+1)
			assert.EqualValues(t, 2-i, d.Remaining)
		}
	})

	t.Run("超出限额后拒绝并携带重置时间", func(t *testing.T) {
		d, err := l.CheckAndConsume(ctx, "wa:1", rule)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.EqualValues(t, 0, d.Remaining)
		assert.Greater(t, d.ResetAfter, time.Duration(0))
		assert.LessOrEqual(t, d.ResetAfter, time.Minute)
	})

	t.Run("窗口重置后重新放行", func(t *testing.T) {
		*now = now.Add(rule.Window)
		d, err := l.CheckAndConsume(ctx, "wa:1", rule)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.EqualValues(t, 2, d.Remaining)
	})

	t.Run("不同键互不影响", func(t *testing.T) {
		d, err := l.CheckAndConsume(ctx, "wa:2", rule)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})
}

func TestStandalone_Validation(t *testing.T) {
	l, _ := newTestLimiter(t, nil)
	ctx := context.Background()

	_, err := l.CheckAndConsume(ctx, "", Rule{Limit: 1, Window: time.Second})
	assert.ErrorIs(t, err, ErrKeyEmpty)

	_, err = l.CheckAndConsume(ctx, "k", Rule{Limit: 0, Window: time.Second})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = l.CheckAndConsume(ctx, "k", Rule{Limit: 1})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestStandalone_CapacityGuard(t *testing.T) {
	l, now := newTestLimiter(t, &StandaloneConfig{MaxEntries: 3})
	ctx := context.Background()
	rule := Rule{Limit: 10, Window: time.Minute}

	for i := 0; i < 3; i++ {
		_, err := l.CheckAndConsume(ctx, fmt.Sprintf("k%d", i), rule)
		require.NoError(t, err)
	}

	t.Run("基数耗尽时拒绝新键", func(t *testing.T) {
		d, err := l.CheckAndConsume(ctx, "k-new", rule)
		assert.ErrorIs(t, err, ErrCapacityExhausted)
		assert.False(t, d.Allowed)
	})

	t.Run("已有键不受基数限制", func(t *testing.T) {
		d, err := l.CheckAndConsume(ctx, "k0", rule)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("过期窗口被清除后新键可进入", func(t *testing.T) {
		*now = now.Add(2 * time.Minute)
		d, err := l.CheckAndConsume(ctx, "k-new", rule)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})
}

func TestStandalone_Close(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "Close 应幂等")

	_, err := l.CheckAndConsume(context.Background(), "k", Rule{Limit: 1, Window: time.Second})
	assert.ErrorIs(t, err, ErrLimiterClosed)
}

func TestPacer(t *testing.T) {
	t.Run("突发容量内立即放行", func(t *testing.T) {
		p := NewPacer(&PacerConfig{Rate: 1, Burst: 2})
		assert.True(t, p.Allow("whatsapp"))
		assert.True(t, p.Allow("whatsapp"))
		assert.False(t, p.Allow("whatsapp"))
	})

	t.Run("键之间互不影响", func(t *testing.T) {
		p := NewPacer(&PacerConfig{Rate: 1, Burst: 1})
		assert.True(t, p.Allow("whatsapp"))
		assert.True(t, p.Allow("docusign"))
	})

	t.Run("等待期间取消上下文", func(t *testing.T) {
		p := NewPacer(&PacerConfig{Rate: 0.001, Burst: 1})
		require.NoError(t, p.Wait(context.Background(), "dep"))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.Error(t, p.Wait(ctx, "dep"))
	})

	t.Run("空键", func(t *testing.T) {
		p := NewPacer(nil)
		assert.ErrorIs(t, p.Wait(context.Background(), ""), ErrKeyEmpty)
		assert.False(t, p.Allow(""))
	})
}
