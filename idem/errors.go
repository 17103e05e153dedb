package idem

import "github.com/ceyewan/anchor/xerrors"

// 错误定义
var (
	// ErrKeyEmpty 事件键为空
	ErrKeyEmpty = xerrors.New("idem: key is empty")

	// ErrInvalidFailMode FailMode 配置非法
	ErrInvalidFailMode = xerrors.New("idem: invalid fail mode")

	// ErrGuardClosed 守卫已关闭
	ErrGuardClosed = xerrors.New("idem: guard is closed")
)
