package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/anchor/db"
)

func newGormTestStore(t *testing.T) VersionedStore {
	t.Helper()
	database, err := db.New(&db.Config{
		Driver: db.DriverSQLite,
		DSN:    ":memory:",
	}, db.WithSilentMode())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, Migrate(context.Background(), database))
	return NewGormStore(database)
}

func TestGormStore_VersionedWrite(t *testing.T) {
	store := newGormTestStore(t)
	ctx := context.Background()

	t.Run("不存在的键版本为零", func(t *testing.T) {
		payload, version, err := store.Read(ctx, "wa:1")
		require.NoError(t, err)
		assert.Nil(t, payload)
		assert.EqualValues(t, 0, version)
	})

	t.Run("创建后版本为一", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "wa:1", []byte(`{"stage":"greeting"}`), 0))

		payload, version, err := store.Read(ctx, "wa:1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"stage":"greeting"}`, string(payload))
		assert.EqualValues(t, 1, version)
	})

	t.Run("重复创建视为冲突", func(t *testing.T) {
		err := store.Write(ctx, "wa:1", []byte("x"), 0)
		require.Error(t, err)
		assert.True(t, IsConflict(err))
	})

	t.Run("条件更新推进版本", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "wa:1", []byte(`{"stage":"docs"}`), 1))

		_, version, err := store.Read(ctx, "wa:1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, version)
	})

	t.Run("旧版本更新冲突并报告实际版本", func(t *testing.T) {
		err := store.Write(ctx, "wa:1", []byte("stale"), 1)
		require.Error(t, err)

		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.EqualValues(t, 1, ce.Expected)
		assert.EqualValues(t, 2, ce.Actual)
	})

	t.Run("删除后可重新创建", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "wa:1"))
		require.NoError(t, store.Write(ctx, "wa:1", []byte("fresh"), 0))
	})
}

func TestManager_WithGormStore(t *testing.T) {
	store := newGormTestStore(t)
	mgr := newTestManager(t, store, nil)
	ctx := context.Background()

	require.NoError(t, mgr.Update(ctx, "wa:2", func([]byte) ([]byte, error) {
		return []byte("v1"), nil
	}))
	require.NoError(t, mgr.Update(ctx, "wa:2", func(p []byte) ([]byte, error) {
		assert.Equal(t, "v1", string(p))
		return []byte("v2"), nil
	}))

	payload, version, err := mgr.Get(ctx, "wa:2")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(payload))
	assert.EqualValues(t, 2, version)
}
