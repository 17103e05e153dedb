package idem

import (
	"context"
	"sync"
	"time"
)

// memoryStore 进程内存持久层实现（非导出）
// 过期记录在访问时惰性清理，适用于单实例部署和测试。
type memoryStore struct {
	ttl time.Duration

	mu      sync.Mutex
	records map[string]*memoryRecord

	// now 时间源，测试时可注入
	now func() time.Time
}

type memoryRecord struct {
	firstSeenAt time.Time
	count       int64
	expiresAt   time.Time
}

// NewMemoryStore 创建进程内存持久层
func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &memoryStore{
		ttl:     ttl,
		records: make(map[string]*memoryRecord),
		now:     time.Now,
	}
}

// RegisterIfAbsent 原子注册一个键
func (s *memoryStore) RegisterIfAbsent(_ context.Context, key string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if r, ok := s.records[key]; ok && now.Before(r.expiresAt) {
		r.count++
		return false, r.count, nil
	}

	s.records[key] = &memoryRecord{
		firstSeenAt: now,
		expiresAt:   now.Add(s.ttl),
	}
	return true, 0, nil
}

// Lookup 查询一个键的幂等记录
func (s *memoryStore) Lookup(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[key]
	if !ok || !s.now().Before(r.expiresAt) {
		return nil, nil
	}
	return &Record{
		Key:           key,
		FirstSeenAt:   r.firstSeenAt,
		DeliveryCount: r.count,
	}, nil
}

// Remove 删除一个键的幂等记录
func (s *memoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}
