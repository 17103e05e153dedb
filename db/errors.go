package db

import "github.com/ceyewan/anchor/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("db: config is nil")

	// ErrDSNEmpty 连接串为空
	ErrDSNEmpty = xerrors.New("db: dsn is empty")

	// ErrUnsupportedDriver 不支持的驱动类型
	ErrUnsupportedDriver = xerrors.New("db: unsupported driver")
)
