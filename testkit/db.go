package testkit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ceyewan/anchor/db"
)

// NewSQLiteConfig 返回 SQLite 内存数据库配置
func NewSQLiteConfig() *db.Config {
	return &db.Config{
		Driver: db.DriverSQLite,
		DSN:    "file::memory:?cache=shared",
	}
}

// NewSQLiteDB 返回内存数据库的 DB 实例，生命周期由 t.Cleanup 管理
func NewSQLiteDB(t *testing.T) db.DB {
	t.Helper()
	database, err := db.New(NewSQLiteConfig(), db.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to open sqlite database")
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

// NewSQLiteGorm 返回内存数据库的原生 *gorm.DB
func NewSQLiteGorm(t *testing.T) *gorm.DB {
	t.Helper()
	return NewSQLiteDB(t).DB(t.Context())
}

// NewPersistentSQLiteConfig 返回持久化 SQLite 测试配置
// 数据库文件存储在 t.TempDir() 中，测试结束后自动清理
func NewPersistentSQLiteConfig(t *testing.T) *db.Config {
	t.Helper()
	return &db.Config{
		Driver: db.DriverSQLite,
		DSN:    t.TempDir() + "/test.db",
	}
}
