package breaker

import (
	"fmt"
	"time"

	"github.com/ceyewan/anchor/xerrors"
)

// 错误定义
var (
	// ErrNameEmpty 依赖名为空
	ErrNameEmpty = xerrors.New("breaker: name is empty")
)

// OpenError 熔断器拒绝错误
// 携带剩余等待时间估计，调用方可据此退避或降级
type OpenError struct {
	Name       string
	Reason     string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("breaker: circuit open for %q, retry after %s", e.Name, e.RetryAfter)
}

// IsOpen 判断错误链中是否包含熔断拒绝
func IsOpen(err error) bool {
	var oe *OpenError
	return xerrors.As(err, &oe)
}
