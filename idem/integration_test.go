// 运行测试需要 Docker；-short 模式下自动跳过
package idem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/anchor/idem"
	"github.com/ceyewan/anchor/testkit"
)

func TestGuardRedisIntegration(t *testing.T) {
	conn := testkit.GetRedisConnector(t)
	ctx := context.Background()

	newGuard := func(t *testing.T) idem.Guard {
		g, err := idem.New(&idem.Config{
			Prefix:    "it:idem:" + testkit.NewID() + ":",
			TTL:       time.Minute,
			RecentTTL: time.Minute,
		}, idem.WithRedisConnector(conn), idem.WithLogger(testkit.NewLogger()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = g.Close() })
		return g
	}

	t.Run("首次与重复投递", func(t *testing.T) {
		g := newGuard(t)
		key := "evt-" + testkit.NewID()

		res, err := g.Check(ctx, key)
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
		assert.EqualValues(t, 0, res.DeliveryCount)

		res, err = g.Check(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.EqualValues(t, 1, res.DeliveryCount)

		res, err = g.Check(ctx, key)
		require.NoError(t, err)
		assert.EqualValues(t, 2, res.DeliveryCount)
	})

	t.Run("跨实例去重走持久层", func(t *testing.T) {
		prefix := "it:idem:shared:" + testkit.NewID() + ":"
		cfg := &idem.Config{Prefix: prefix, TTL: time.Minute}

		g1, err := idem.New(cfg, idem.WithRedisConnector(conn))
		require.NoError(t, err)
		defer g1.Close()
		g2, err := idem.New(cfg, idem.WithRedisConnector(conn))
		require.NoError(t, err)
		defer g2.Close()

		key := "evt-" + testkit.NewID()

		res, err := g1.Check(ctx, key)
		require.NoError(t, err)
		assert.False(t, res.Duplicate)

		// 第二个实例没有近期缓存，依然判重
		res, err = g2.Check(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.EqualValues(t, 1, res.DeliveryCount)
	})

	t.Run("Forget 后允许重投", func(t *testing.T) {
		g := newGuard(t)
		key := "evt-" + testkit.NewID()

		_, err := g.Check(ctx, key)
		require.NoError(t, err)
		require.NoError(t, g.Forget(ctx, key))

		res, err := g.Check(ctx, key)
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
	})
}
