// Package audit 提供了有界的审计事件队列，带后台落盘与停机兜底。
//
// 审计事件（消息收发、签署状态变更、限流拒绝等）不应阻塞业务路径，
// 也不应在进程退出时丢失。audit 的取舍是：
// - Record 非阻塞入队，队列满时返回 ErrQueueFull（业务自行决定降级）
// - 后台按批次排空到 Sink（数据库、日志、消息队列由调用方实现）
// - 显式 Flush(ctx) / Close()：关闭时未排空的事件以 msgpack 编码
//   落到本地兜底文件，下次启动 Restore() 重新入队
// - 每条事件自动携带当时的 correlation id
//
// ## 基本使用
//
//	rec, _ := audit.New(sink, &audit.Config{Capacity: 4096},
//		audit.WithLogger(logger))
//	defer rec.Close()
//
//	_ = rec.Restore(ctx) // 启动时回灌上次停机的残留
//
//	rec.Record(ctx, "message.sent", map[string]string{
//		"conversation": "wa:5511999",
//		"provider_id":  "wamid.123",
//	})
package audit

import (
	"context"
	"time"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/metrics"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Entry 审计事件
type Entry struct {
	// ID 事件唯一标识（uuid）
	ID string `json:"id" msgpack:"id"`

	// Kind 事件类型（如 "message.sent", "signature.completed"）
	Kind string `json:"kind" msgpack:"kind"`

	// CorrelationID 入队时的关联 id，可能为空
	CorrelationID string `json:"correlation_id,omitempty" msgpack:"correlation_id"`

	// At 事件时间
	At time.Time `json:"at" msgpack:"at"`

	// Fields 事件属性（只放键与标识，不放业务负载）
	Fields map[string]string `json:"fields,omitempty" msgpack:"fields"`
}

// Sink 审计事件的最终去处
// Write 失败时整批保留并在下个周期重试，实现需要幂等。
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
}

// SinkFunc 函数式 Sink 适配器
type SinkFunc func(ctx context.Context, entries []Entry) error

// Write 实现 Sink 接口
func (f SinkFunc) Write(ctx context.Context, entries []Entry) error {
	return f(ctx, entries)
}

// Recorder 审计记录器核心接口
type Recorder interface {
	// Record 非阻塞入队一条审计事件
	// 队列满时返回 ErrQueueFull，事件被丢弃并计数
	Record(ctx context.Context, kind string, fields map[string]string) error

	// Flush 同步排空队列到 Sink
	Flush(ctx context.Context) error

	// Restore 读取兜底文件并重新入队，成功后删除文件
	// 应在启动时、开始 Record 之前调用；没有兜底文件时是 no-op
	Restore(ctx context.Context) error

	// Close 停止后台排空并把未排空的事件写入兜底文件（幂等）
	Close() error
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 审计队列配置
type Config struct {
	// Capacity 队列容量（默认：4096）
	Capacity int `json:"capacity" yaml:"capacity"`

	// DrainInterval 后台排空周期（默认：1s）
	DrainInterval time.Duration `json:"drain_interval" yaml:"drain_interval"`

	// BatchSize 单次排空的最大批量（默认：128）
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// BufferPath 停机兜底文件路径（默认："audit.spill"）
	BufferPath string `json:"buffer_path" yaml:"buffer_path"`
}

func (c *Config) setDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 4096
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 128
	}
	if c.BufferPath == "" {
		c.BufferPath = "audit.spill"
	}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建审计记录器
//
// 参数:
//   - sink: 事件去处
//   - cfg: 队列配置，nil 时使用默认配置
//   - opts: 可选参数 (Logger, Meter)
func New(sink Sink, cfg *Config, opts ...Option) (Recorder, error) {
	if sink == nil {
		return nil, ErrSinkNil
	}

	if cfg == nil {
		cfg = &Config{}
	}
	cfgCopy := *cfg
	cfgCopy.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	} else {
		logger = logger.With(clog.String("component", "audit"))
	}
	meter := opt.meter
	if meter == nil {
		meter = metrics.Noop()
	}

	return newRecorder(sink, &cfgCopy, logger, meter), nil
}
