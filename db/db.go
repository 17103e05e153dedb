// Package db 提供了基于 GORM 的数据库组件，为会话状态等持久化场景服务。
//
// db 组件是 Anchor 基础设施层的一部分，它提供了：
// - GORM ORM 功能封装（MySQL / SQLite 驱动）
// - 连接池参数管理
// - 事务管理支持
// - 与 L0 基础组件（日志、错误）的集成，SQL 日志走 clog
//
// ## 基本使用
//
//	database, _ := db.New(&db.Config{
//		Driver: "sqlite",
//		DSN:    "file:anchor.db?cache=shared",
//	}, db.WithLogger(logger))
//	defer database.Close()
//
//	gormDB := database.DB(ctx)
//	var sessions []Session
//	gormDB.Where("channel = ?", "whatsapp").Find(&sessions)
//
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		return tx.Create(&Session{Key: "wa:5511999"}).Error
//	})
package db

import (
	"context"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/xerrors"
)

// DB 数据库组件核心接口
type DB interface {
	// DB 获取绑定了 ctx 的 *gorm.DB 实例
	// 绝大多数业务查询直接使用此方法返回的对象
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务操作
	// fn 中的 tx 对象仅在当前事务范围内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// Ping 检查数据库连通性
	Ping(ctx context.Context) error

	// Close 关闭底层连接池
	Close() error
}

// database DB 接口实现（非导出）
type database struct {
	client *gorm.DB
	logger clog.Logger
}

// New 创建数据库组件实例
//
// 参数:
//   - cfg: 数据库配置（Driver 支持 "mysql" 与 "sqlite"）
//   - opts: 可选参数 (Logger, SilentMode)
func New(cfg *Config, opts ...Option) (DB, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfgCopy := *cfg
	if err := cfgCopy.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}

	var dialector gorm.Dialector
	switch cfgCopy.Driver {
	case DriverMySQL:
		dialector = mysql.Open(cfgCopy.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfgCopy.DSN)
	}

	client, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(opt.logger, opt.silentMode),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "open %s database", cfgCopy.Driver)
	}

	sqlDB, err := client.DB()
	if err != nil {
		return nil, xerrors.Wrap(err, "get sql.DB")
	}
	sqlDB.SetMaxOpenConns(cfgCopy.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfgCopy.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfgCopy.ConnMaxLifetime)

	opt.logger.Info("database opened",
		clog.String("driver", cfgCopy.Driver),
		clog.Int("max_open_conns", cfgCopy.MaxOpenConns))

	return &database{client: client, logger: opt.logger}, nil
}

// DB 获取绑定了 ctx 的 *gorm.DB 实例
func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

// Transaction 执行事务操作
func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

// Ping 检查数据库连通性
func (d *database) Ping(ctx context.Context) error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return xerrors.Wrap(err, "get sql.DB")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池
func (d *database) Close() error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return xerrors.Wrap(err, "get sql.DB")
	}
	return sqlDB.Close()
}
