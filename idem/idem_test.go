package idem

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, cfg *Config, opts ...Option) Guard {
	t.Helper()
	guard, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = guard.Close() })
	return guard
}

func TestGuard_FirstDeliveryThenDuplicates(t *testing.T) {
	guard := newTestGuard(t, nil)
	ctx := context.Background()

	t.Run("首次投递不是重复", func(t *testing.T) {
		res, err := guard.Check(ctx, "wamid.123")
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
		assert.EqualValues(t, 0, res.DeliveryCount)
	})

	t.Run("第二次投递判定为重复且计数为一", func(t *testing.T) {
		res, err := guard.Check(ctx, "wamid.123")
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.EqualValues(t, 1, res.DeliveryCount)
	})

	t.Run("后续投递计数严格递增", func(t *testing.T) {
		var last int64 = 1
		for i := 0; i < 5; i++ {
			res, err := guard.Check(ctx, "wamid.123")
			require.NoError(t, err)
			assert.True(t, res.Duplicate)
			assert.Greater(t, res.DeliveryCount, last-1)
			assert.EqualValues(t, last+1, res.DeliveryCount)
			last = res.DeliveryCount
		}
	})
}

func TestGuard_KeysAreIndependent(t *testing.T) {
	guard := newTestGuard(t, nil)
	ctx := context.Background()

	res1, err := guard.Check(ctx, "wamid.a")
	require.NoError(t, err)
	res2, err := guard.Check(ctx, "wamid.b")
	require.NoError(t, err)

	assert.False(t, res1.Duplicate)
	assert.False(t, res2.Duplicate)
}

func TestGuard_EmptyKey(t *testing.T) {
	guard := newTestGuard(t, nil)

	_, err := guard.Check(context.Background(), "")
	assert.ErrorIs(t, err, ErrKeyEmpty)
}

func TestGuard_Forget(t *testing.T) {
	guard := newTestGuard(t, nil)
	ctx := context.Background()

	_, err := guard.Check(ctx, "env.sign.completed")
	require.NoError(t, err)

	require.NoError(t, guard.Forget(ctx, "env.sign.completed"))

	res, err := guard.Check(ctx, "env.sign.completed")
	require.NoError(t, err)
	assert.False(t, res.Duplicate, "遗忘后的键应视为首次投递")
}

func TestGuard_Closed(t *testing.T) {
	guard := newTestGuard(t, nil)
	require.NoError(t, guard.Close())
	require.NoError(t, guard.Close(), "Close 应幂等")

	_, err := guard.Check(context.Background(), "k")
	assert.ErrorIs(t, err, ErrGuardClosed)
}

// failingStore 持久层故障注入
type failingStore struct{ err error }

func (s *failingStore) RegisterIfAbsent(context.Context, string) (bool, int64, error) {
	return false, 0, s.err
}
func (s *failingStore) Lookup(context.Context, string) (*Record, error) { return nil, s.err }
func (s *failingStore) Remove(context.Context, string) error            { return s.err }

func TestGuard_FailModes(t *testing.T) {
	cfg := &Config{
		DefaultFailMode: FailOpen,
		Classes: map[string]ClassPolicy{
			"payment": {FailMode: FailClosed},
		},
	}
	guard := newTestGuard(t, cfg,
		WithStore(&failingStore{err: assert.AnError}))
	ctx := context.Background()

	t.Run("默认类别故障时放行", func(t *testing.T) {
		res, err := guard.Check(ctx, "wamid.msg")
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
	})

	t.Run("支付类别故障时拒绝", func(t *testing.T) {
		res, err := guard.Check(ctx, "pay.456", ForClass("payment"))
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("非法的默认策略", func(t *testing.T) {
		_, err := New(&Config{DefaultFailMode: "maybe"})
		assert.ErrorIs(t, err, ErrInvalidFailMode)
	})

	t.Run("非法的类别策略", func(t *testing.T) {
		_, err := New(&Config{
			Classes: map[string]ClassPolicy{"x": {FailMode: "maybe"}},
		})
		assert.ErrorIs(t, err, ErrInvalidFailMode)
	})
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore(time.Hour).(*memoryStore)
	base := time.Now()
	store.now = func() time.Time { return base }
	ctx := context.Background()

	inserted, _, err := store.RegisterIfAbsent(ctx, "k")
	require.NoError(t, err)
	require.True(t, inserted)

	// TTL 过期后重新注册视为首次
	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	inserted, count, err := store.RegisterIfAbsent(ctx, "k")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.EqualValues(t, 0, count)
}

func TestMemoryStore_Lookup(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	rec, err := store.Lookup(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, _, err = store.RegisterIfAbsent(ctx, "k")
	require.NoError(t, err)
	_, _, err = store.RegisterIfAbsent(ctx, "k")
	require.NoError(t, err)

	rec, err = store.Lookup(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "k", rec.Key)
	assert.EqualValues(t, 1, rec.DeliveryCount)
	assert.False(t, rec.FirstSeenAt.IsZero())
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(guard Guard) (*gin.Engine, *int) {
		handled := 0
		r := gin.New()
		r.POST("/webhook",
			GinMiddleware(guard, nil, "message"),
			func(c *gin.Context) {
				handled++
				c.JSON(http.StatusOK, gin.H{"status": "accepted"})
			})
		return r, &handled
	}

	post := func(r *gin.Engine, eventID string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		if eventID != "" {
			req.Header.Set(DefaultEventHeader, eventID)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("重复投递直接确认", func(t *testing.T) {
		guard := newTestGuard(t, nil)
		r, handled := newRouter(guard)

		w1 := post(r, "wamid.777")
		assert.Equal(t, http.StatusOK, w1.Code)
		assert.Equal(t, 1, *handled)

		w2 := post(r, "wamid.777")
		assert.Equal(t, http.StatusOK, w2.Code)
		assert.Equal(t, 1, *handled, "重复投递不应进入处理链")
		assert.Equal(t, "1", w2.Header().Get("X-Idempotent-Replay"))
		assert.Contains(t, w2.Body.String(), "duplicate")
	})

	t.Run("无事件键的请求不做去重", func(t *testing.T) {
		guard := newTestGuard(t, nil)
		r, handled := newRouter(guard)

		post(r, "")
		post(r, "")
		assert.Equal(t, 2, *handled)
	})
}
