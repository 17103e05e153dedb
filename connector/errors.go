package connector

import "github.com/ceyewan/anchor/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("connector: config is nil")

	// ErrAddrEmpty 连接地址为空
	ErrAddrEmpty = xerrors.New("connector: addr is empty")

	// ErrInvalidDB 数据库编号无效
	ErrInvalidDB = xerrors.New("connector: invalid db number")

	// ErrClientNil 客户端未初始化或已关闭
	ErrClientNil = xerrors.New("connector: client is nil")
)
