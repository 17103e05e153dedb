package session

// 指标名称
const (
	// MetricConflicts 乐观写入冲突次数
	MetricConflicts = "session_write_conflicts_total"
	// MetricExhaustions 冲突重试耗尽次数
	MetricExhaustions = "session_update_exhaustions_total"
)

// 指标标签
const (
	LabelKey = "key"
)
