// Package session 提供了带乐观并发控制的会话状态组件。
//
// 同一个会话（如一个 WhatsApp 对话）可能被 webhook 处理器、定时任务和人工
// 操作并发修改。session 用版本号实现乐观并发控制：
// - VersionedStore 的 Write 携带期望版本，版本已前进时返回 *ConflictError
// - Manager.Update 封装读取-变更-写回循环，冲突时在新版本上重放变更函数
// - 重试有界（默认 3 次尝试），带抖动退避，非冲突错误立即传播
//
// ## 基本使用
//
//	mgr, _ := session.NewManager(store, nil, session.WithLogger(logger))
//
//	err := mgr.Update(ctx, "wa:5511999", func(payload []byte) ([]byte, error) {
//		var s ConversationState
//		if len(payload) > 0 {
//			if err := json.Unmarshal(payload, &s); err != nil {
//				return nil, err
//			}
//		}
//		s.Stage = "awaiting_signature"
//		return json.Marshal(s)
//	})
//
// ## 存储实现
//
// 内置三种 VersionedStore：进程内存（单实例与测试）、Redis（Lua 比较版本
// 并写入）、GORM（UPDATE ... WHERE key = ? AND version = ?）。
package session

import (
	"context"
	"time"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/metrics"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// VersionedStore 带版本号的键值存储接口
type VersionedStore interface {
	// Read 读取会话负载与当前版本
	// 键不存在时返回 (nil, 0, nil)，版本 0 表示"尚未创建"
	Read(ctx context.Context, key string) (payload []byte, version int64, err error)

	// Write 以期望版本写入
	//
	// 仅当存储中的版本等于 expectedVersion 时写入成功并使版本加一；
	// expectedVersion 为 0 表示创建（键已存在时冲突）。
	// 版本不匹配时返回 *ConflictError，携带期望与实际版本。
	Write(ctx context.Context, key string, payload []byte, expectedVersion int64) error

	// Delete 删除会话（不存在时不报错）
	Delete(ctx context.Context, key string) error
}

// MutateFunc 会话变更函数
// 入参是当前负载（键不存在时为 nil），返回新的负载。
// 冲突重试时会在最新负载上重新执行，因此必须无副作用。
type MutateFunc func(payload []byte) ([]byte, error)

// Manager 乐观并发会话管理器接口
type Manager interface {
	// Get 读取会话负载，键不存在时返回 (nil, 0, nil)
	Get(ctx context.Context, key string) ([]byte, int64, error)

	// Update 执行读取-变更-写回循环
	//
	// 写回冲突时重新读取并在新版本上重放 mutate，最多 MaxAttempts 次；
	// 尝试耗尽时返回最后一次的 *ConflictError。
	// mutate 返回错误或存储返回非冲突错误时立即传播，不重试。
	Update(ctx context.Context, key string, mutate MutateFunc) error

	// Delete 删除会话
	Delete(ctx context.Context, key string) error
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 乐观重试配置
type Config struct {
	// MaxAttempts 最大尝试次数（默认：3）
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay 冲突退避基础时长（默认：50ms）
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay 冲突退避时长上限（默认：1s）
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
}

func (c *Config) setDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 50 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = time.Second
	}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// NewManager 创建会话管理器
//
// 参数:
//   - store: 版本化存储实现（memory / redis / gorm）
//   - cfg: 乐观重试配置，nil 时使用默认配置
//   - opts: 可选参数 (Logger, Meter)
func NewManager(store VersionedStore, cfg *Config, opts ...Option) (Manager, error) {
	if store == nil {
		return nil, ErrStoreNil
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
		logger = logger.With(clog.String("component", "session"))
	}
	meter := opt.meter
	if meter == nil {
		meter = metrics.Noop()
	}

	return newManager(store, &cfgCopy, logger, meter), nil
}
