package ratelimit

import "github.com/ceyewan/anchor/xerrors"

// 错误定义
var (
	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.New("ratelimit: key is empty")

	// ErrInvalidRule 限流规则非法（Limit 或 Window 非正）
	ErrInvalidRule = xerrors.New("ratelimit: invalid rule")

	// ErrConnectorNil Redis 连接器为空
	ErrConnectorNil = xerrors.New("ratelimit: redis connector is nil")

	// ErrCapacityExhausted 键基数达到上限，新键被拒绝
	ErrCapacityExhausted = xerrors.WithCode(
		xerrors.New("ratelimit: entry capacity exhausted"), xerrors.CodeRateLimited)

	// ErrLimiterClosed 限流器已关闭
	ErrLimiterClosed = xerrors.New("ratelimit: limiter is closed")

	// ErrLimitExceeded 配额耗尽，供调用方把拒绝转换为错误时使用
	ErrLimitExceeded = xerrors.WithCode(
		xerrors.New("ratelimit: limit exceeded"), xerrors.CodeRateLimited)
)
