package session

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ceyewan/anchor/db"
	"github.com/ceyewan/anchor/xerrors"
)

// sessionRow 会话表模型
type sessionRow struct {
	Key       string    `gorm:"primarykey;size:255;column:session_key"`
	Payload   []byte    `gorm:"column:payload"`
	Version   int64     `gorm:"column:version;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName 指定表名
func (sessionRow) TableName() string {
	return "sessions"
}

// gormStore GORM 版本化存储（非导出）
// 用条件更新（UPDATE ... WHERE session_key = ? AND version = ?）实现比较写入，
// 受影响行数为 0 即版本冲突。
type gormStore struct {
	db db.DB
}

// NewGormStore 创建 GORM 版本化存储
// 调用方需保证 sessions 表已建（AutoMigrate 见 Migrate）
func NewGormStore(database db.DB) VersionedStore {
	return &gormStore{db: database}
}

// Migrate 创建/升级会话表结构
func Migrate(ctx context.Context, database db.DB) error {
	if err := database.DB(ctx).AutoMigrate(&sessionRow{}); err != nil {
		return xerrors.Wrap(err, "session: migrate")
	}
	return nil
}

// Read 读取会话负载与当前版本
func (s *gormStore) Read(ctx context.Context, key string) ([]byte, int64, error) {
	var row sessionRow
	err := s.db.DB(ctx).First(&row, "session_key = ?", key).Error
	if xerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, xerrors.Wrap(err, "session: read")
	}
	return row.Payload, row.Version, nil
}

// Write 以期望版本写入
func (s *gormStore) Write(ctx context.Context, key string, payload []byte, expectedVersion int64) error {
	if expectedVersion == 0 {
		err := s.db.DB(ctx).Create(&sessionRow{
			Key:     key,
			Payload: payload,
			Version: 1,
		}).Error
		if err == nil {
			return nil
		}
		// 创建相撞说明别的写入方已抢先建出该键
		if actual, readErr := s.currentVersion(ctx, key); readErr == nil && actual > 0 {
			return &ConflictError{Key: key, Expected: 0, Actual: actual}
		}
		return xerrors.Wrap(err, "session: create")
	}

	res := s.db.DB(ctx).Model(&sessionRow{}).
		Where("session_key = ? AND version = ?", key, expectedVersion).
		Updates(map[string]interface{}{
			"payload": payload,
			"version": expectedVersion + 1,
		})
	if res.Error != nil {
		return xerrors.Wrap(res.Error, "session: write")
	}
	if res.RowsAffected == 0 {
		actual, err := s.currentVersion(ctx, key)
		if err != nil {
			return err
		}
		return &ConflictError{Key: key, Expected: expectedVersion, Actual: actual}
	}
	return nil
}

// Delete 删除会话
func (s *gormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.DB(ctx).Delete(&sessionRow{}, "session_key = ?", key).Error; err != nil {
		return xerrors.Wrap(err, "session: delete")
	}
	return nil
}

func (s *gormStore) currentVersion(ctx context.Context, key string) (int64, error) {
	var row sessionRow
	err := s.db.DB(ctx).Select("version").First(&row, "session_key = ?", key).Error
	if xerrors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, xerrors.Wrap(err, "session: read version")
	}
	return row.Version, nil
}
