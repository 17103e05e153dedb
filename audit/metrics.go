package audit

// 指标名称
const (
	// MetricRecorded 入队的审计事件数
	MetricRecorded = "audit_recorded_total"
	// MetricDropped 队列满被丢弃的事件数
	MetricDropped = "audit_dropped_total"
	// MetricFlushed 成功写入 Sink 的事件数
	MetricFlushed = "audit_flushed_total"
)

// 指标标签
const (
	LabelKind = "kind"
)
