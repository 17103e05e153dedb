package idem

import (
	"context"
	"time"
)

// ========================================
// 持久层接口 (Store Interface)
// ========================================

// Store 幂等记录持久层接口
// 实现必须保证 RegisterIfAbsent 的原子性：并发注册同一个键时
// 恰好有一次返回 inserted=true。
type Store interface {
	// RegisterIfAbsent 原子注册一个键
	//
	// 键不存在时创建记录并返回 (true, 0, nil)；
	// 已存在时递增投递计数并返回 (false, n, nil)，n 为此前投递次数（>= 1）。
	RegisterIfAbsent(ctx context.Context, key string) (inserted bool, count int64, err error)

	// Lookup 查询一个键的幂等记录，不存在时返回 (nil, nil)
	Lookup(ctx context.Context, key string) (*Record, error)

	// Remove 删除一个键的幂等记录（不存在时不报错）
	Remove(ctx context.Context, key string) error
}

// Record 幂等记录
type Record struct {
	// Key 事件键（如 WhatsApp 的 wamid、信封事件的 envelopeId+event）
	Key string `json:"key"`

	// FirstSeenAt 首次投递时间
	FirstSeenAt time.Time `json:"first_seen_at"`

	// DeliveryCount 此前已投递的次数，首次注册后为 0
	DeliveryCount int64 `json:"delivery_count"`
}
