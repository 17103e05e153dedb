package session

import (
	"fmt"

	"github.com/ceyewan/anchor/xerrors"
)

// 错误定义
var (
	// ErrStoreNil 存储实现为空
	ErrStoreNil = xerrors.New("session: store is nil")

	// ErrKeyEmpty 会话键为空
	ErrKeyEmpty = xerrors.New("session: key is empty")
)

// ConflictError 乐观并发冲突
// Write 发现存储中的版本不等于期望版本时返回，携带两个版本号供诊断
type ConflictError struct {
	Key      string
	Expected int64
	Actual   int64
}

// Error 实现 error 接口
func (e *ConflictError) Error() string {
	return fmt.Sprintf("session: version conflict on %q: expected %d, actual %d",
		e.Key, e.Expected, e.Actual)
}

// Code 返回并发冲突错误码，供 xerrors.GetCode 识别
func (e *ConflictError) Code() string {
	return xerrors.CodeConcurrency
}

// IsConflict 判断是否为乐观并发冲突
func IsConflict(err error) bool {
	var ce *ConflictError
	return xerrors.As(err, &ce)
}
