package breaker

// 指标名称
const (
	// MetricStateChanges 状态变更次数
	MetricStateChanges = "breaker_state_changes_total"
)

// 指标标签
const (
	LabelDep       = "dep"
	LabelFromState = "from"
	LabelToState   = "to"
)
