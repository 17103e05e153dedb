package guard

// 指标名称
const (
	// MetricCalls 受保护调用总次数
	MetricCalls = "guard_calls_total"
	// MetricDuration 受保护调用耗时（秒）
	MetricDuration = "guard_call_duration_seconds"
)

// 指标标签
const (
	LabelDep     = "dep"
	LabelOutcome = "outcome"
)
