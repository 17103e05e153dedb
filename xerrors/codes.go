package xerrors

// Anchor 统一错误码。
//
// 各组件在边界处用 WithCode 标注错误分类，API 层据此映射 HTTP 状态，
// 日志与指标据此打标签。错误消息不得携带业务负载数据。
const (
	// CodeCircuitOpen 熔断器打开，快速失败
	CodeCircuitOpen = "CIRCUIT_OPEN"

	// CodeTimeout 操作超出预算时间
	CodeTimeout = "TIMEOUT"

	// CodeConcurrency 乐观锁版本冲突
	CodeConcurrency = "CONCURRENCY_CONFLICT"

	// CodeRateLimited 准入被限流拒绝
	CodeRateLimited = "RATE_LIMITED"

	// CodeExternalService 外部依赖失败（不可重试或重试耗尽）
	CodeExternalService = "EXTERNAL_SERVICE"

	// CodeInvalidInput 参数无效
	CodeInvalidInput = "INVALID_INPUT"
)
