package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/ceyewan/anchor/xerrors"
)

// DefaultClassifier 默认错误分类器
//
// 可重试：
//   - 连接类错误：连接重置/拒绝、管道破裂、非预期 EOF
//   - 超时：net.Error 超时、context.DeadlineExceeded、错误码 TIMEOUT
//   - 外部依赖返回 HTTP 429 或 5xx（通过 xerrors.HTTPStatus 提取）
//
// 不可重试：
//   - context.Canceled（调用方主动放弃）
//   - 其余一切错误（业务错误、4xx 等）
func DefaultClassifier(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	if status := xerrors.HTTPStatus(err); status == 429 || status >= 500 {
		return true
	}

	if xerrors.GetCode(err) == xerrors.CodeTimeout {
		return true
	}

	return false
}
