package ratelimit

// 指标名称
const (
	// MetricAllowed 放行的请求数
	MetricAllowed = "ratelimit_allowed_total"
	// MetricDenied 拒绝的请求数
	MetricDenied = "ratelimit_denied_total"
	// MetricEvictions 过期窗口清除次数
	MetricEvictions = "ratelimit_evictions_total"
)

// 指标标签
const (
	LabelMode = "mode"
)
