package audit

import "github.com/ceyewan/anchor/xerrors"

// 错误定义
var (
	// ErrSinkNil Sink 为空
	ErrSinkNil = xerrors.New("audit: sink is nil")

	// ErrKindEmpty 事件类型为空
	ErrKindEmpty = xerrors.New("audit: kind is empty")

	// ErrQueueFull 队列已满，事件被丢弃
	ErrQueueFull = xerrors.New("audit: queue is full")

	// ErrRecorderClosed 记录器已关闭
	ErrRecorderClosed = xerrors.New("audit: recorder is closed")
)
