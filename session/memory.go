package session

import (
	"context"
	"sync"
)

// memoryStore 进程内存版本化存储（非导出）
// 适用于单实例部署和测试。
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	payload []byte
	version int64
}

// NewMemoryStore 创建进程内存版本化存储
func NewMemoryStore() VersionedStore {
	return &memoryStore{entries: make(map[string]*memoryEntry)}
}

// Read 读取会话负载与当前版本
func (s *memoryStore) Read(_ context.Context, key string) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, 0, nil
	}
	// 返回副本，调用方的 mutate 不得影响存储内容
	cp := make([]byte, len(e.payload))
	copy(cp, e.payload)
	return cp, e.version, nil
}

// Write 以期望版本写入
func (s *memoryStore) Write(_ context.Context, key string, payload []byte, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var actual int64
	if e, ok := s.entries[key]; ok {
		actual = e.version
	}
	if actual != expectedVersion {
		return &ConflictError{Key: key, Expected: expectedVersion, Actual: actual}
	}

	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.entries[key] = &memoryEntry{payload: cp, version: actual + 1}
	return nil
}

// Delete 删除会话
func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
