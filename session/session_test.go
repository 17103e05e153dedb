package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/anchor/xerrors"
)

func newTestManager(t *testing.T, store VersionedStore, cfg *Config) Manager {
	t.Helper()
	mgr, err := NewManager(store, cfg)
	require.NoError(t, err)
	return mgr
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(nil, nil)
	assert.ErrorIs(t, err, ErrStoreNil)
}

func TestMemoryStore_VersionedWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	t.Run("不存在的键版本为零", func(t *testing.T) {
		payload, version, err := store.Read(ctx, "wa:1")
		require.NoError(t, err)
		assert.Nil(t, payload)
		assert.EqualValues(t, 0, version)
	})

	t.Run("期望版本零表示创建", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "wa:1", []byte("a"), 0))

		payload, version, err := store.Read(ctx, "wa:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), payload)
		assert.EqualValues(t, 1, version)
	})

	t.Run("版本匹配时写入并加一", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "wa:1", []byte("b"), 1))

		_, version, err := store.Read(ctx, "wa:1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, version)
	})

	t.Run("版本前进后旧版本写入冲突", func(t *testing.T) {
		err := store.Write(ctx, "wa:1", []byte("stale"), 1)
		require.Error(t, err)
		assert.True(t, IsConflict(err))

		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "wa:1", ce.Key)
		assert.EqualValues(t, 1, ce.Expected)
		assert.EqualValues(t, 2, ce.Actual)
	})

	t.Run("删除后键回到未创建状态", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "wa:1"))
		_, version, err := store.Read(ctx, "wa:1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, version)
	})
}

type convState struct {
	Stage string   `json:"stage"`
	Tags  []string `json:"tags"`
}

func TestManager_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("创建并更新会话", func(t *testing.T) {
		store := NewMemoryStore()
		mgr := newTestManager(t, store, nil)

		err := mgr.Update(ctx, "wa:5511999", func(payload []byte) ([]byte, error) {
			assert.Nil(t, payload)
			return json.Marshal(convState{Stage: "greeting"})
		})
		require.NoError(t, err)

		payload, version, err := mgr.Get(ctx, "wa:5511999")
		require.NoError(t, err)
		assert.EqualValues(t, 1, version)

		var s convState
		require.NoError(t, json.Unmarshal(payload, &s))
		assert.Equal(t, "greeting", s.Stage)
	})

	t.Run("变更函数出错时立即传播", func(t *testing.T) {
		store := NewMemoryStore()
		mgr := newTestManager(t, store, nil)

		err := mgr.Update(ctx, "wa:x", func([]byte) ([]byte, error) {
			return nil, assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("空键", func(t *testing.T) {
		mgr := newTestManager(t, NewMemoryStore(), nil)
		assert.ErrorIs(t, mgr.Update(ctx, "", nil), ErrKeyEmpty)
	})
}

// conflictingStore 在前 n 次写入时模拟并发写入方抢先提交
type conflictingStore struct {
	VersionedStore
	remaining int
	writes    int
}

func (s *conflictingStore) Write(ctx context.Context, key string, payload []byte, expectedVersion int64) error {
	s.writes++
	if s.remaining > 0 {
		s.remaining--
		// 另一个写入方抢先提交，使存储中的版本前进
		if err := s.VersionedStore.Write(ctx, key, []byte("other"), expectedVersion); err != nil {
			return err
		}
		return &ConflictError{Key: key, Expected: expectedVersion, Actual: expectedVersion + 1}
	}
	return s.VersionedStore.Write(ctx, key, payload, expectedVersion)
}

func TestManager_UpdateConflictRetry(t *testing.T) {
	ctx := context.Background()
	fastCfg := &Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	t.Run("冲突后在新版本上重放成功", func(t *testing.T) {
		store := &conflictingStore{VersionedStore: NewMemoryStore(), remaining: 1}
		mgr := newTestManager(t, store, fastCfg)

		var seen []string
		err := mgr.Update(ctx, "wa:1", func(payload []byte) ([]byte, error) {
			seen = append(seen, string(payload))
			return []byte("mine"), nil
		})
		require.NoError(t, err)

		assert.Equal(t, 2, store.writes)
		// 第二次重放读到的是抢先写入方的负载
		require.Len(t, seen, 2)
		assert.Equal(t, "", seen[0])
		assert.Equal(t, "other", seen[1])

		payload, version, err := mgr.Get(ctx, "wa:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("mine"), payload)
		assert.EqualValues(t, 2, version)
	})

	t.Run("尝试耗尽返回最后一次冲突", func(t *testing.T) {
		store := &conflictingStore{VersionedStore: NewMemoryStore(), remaining: 99}
		mgr := newTestManager(t, store, fastCfg)

		err := mgr.Update(ctx, "wa:1", func([]byte) ([]byte, error) {
			return []byte("mine"), nil
		})
		require.Error(t, err)
		assert.True(t, IsConflict(err))
		assert.Equal(t, 3, store.writes)
	})

	t.Run("退避期间取消上下文", func(t *testing.T) {
		store := &conflictingStore{VersionedStore: NewMemoryStore(), remaining: 99}
		mgr := newTestManager(t, store,
			&Config{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})

		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := mgr.Update(cctx, "wa:1", func([]byte) ([]byte, error) {
			return []byte("mine"), nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestConflictError_Code(t *testing.T) {
	err := &ConflictError{Key: "k", Expected: 5, Actual: 7}
	assert.Contains(t, err.Error(), "expected 5")
	assert.Contains(t, err.Error(), "actual 7")
	assert.Equal(t, xerrors.CodeConcurrency, xerrors.GetCode(err))
}
