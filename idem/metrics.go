package idem

// 指标名称
const (
	// MetricChecks 幂等判定总次数
	MetricChecks = "idem_checks_total"
	// MetricDuplicates 判定为重复投递的次数
	MetricDuplicates = "idem_duplicates_total"
	// MetricStoreFailures 持久层故障降级次数
	MetricStoreFailures = "idem_store_failures_total"
)

// 指标标签
const (
	LabelClass    = "class"
	LabelTier     = "tier"
	LabelFailMode = "fail_mode"
)
