package guard

import "github.com/ceyewan/anchor/xerrors"

// 错误定义
var (
	// ErrDepEmpty 依赖名为空
	ErrDepEmpty = xerrors.New("guard: dep is empty")

	// ErrTimeout 单次尝试超时
	// 可重试（分类器识别 TIMEOUT 错误码），重试耗尽后原样返回给调用方
	ErrTimeout = xerrors.WithCode(
		xerrors.New("guard: attempt timed out"), xerrors.CodeTimeout)
)
