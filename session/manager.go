package session

import (
	"context"
	"time"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/correlation"
	"github.com/ceyewan/anchor/metrics"
	"github.com/ceyewan/anchor/retry"
)

// manager Manager 接口实现（非导出）
type manager struct {
	store  VersionedStore
	cfg    *Config
	logger clog.Logger
	meter  metrics.Meter

	conflicts   metrics.Counter
	exhaustions metrics.Counter
}

func newManager(store VersionedStore, cfg *Config, logger clog.Logger, meter metrics.Meter) *manager {
	m := &manager{
		store:  store,
		cfg:    cfg,
		logger: logger,
		meter:  meter,
	}
	m.conflicts, _ = meter.Counter(MetricConflicts, "Optimistic write conflicts")
	m.exhaustions, _ = meter.Counter(MetricExhaustions, "Update attempts exhausted on conflicts")
	return m
}

// Get 读取会话负载
func (m *manager) Get(ctx context.Context, key string) ([]byte, int64, error) {
	if key == "" {
		return nil, 0, ErrKeyEmpty
	}
	return m.store.Read(ctx, key)
}

// Update 执行读取-变更-写回循环
func (m *manager) Update(ctx context.Context, key string, mutate MutateFunc) error {
	if key == "" {
		return ErrKeyEmpty
	}

	var lastConflict error
	for attempt := 0; attempt < m.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			// 冲突重放前退避，降低并发写入方再次相撞的概率
			delay := retry.Backoff(m.cfg.BaseDelay, m.cfg.MaxDelay, attempt-1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		payload, version, err := m.store.Read(ctx, key)
		if err != nil {
			return err
		}

		next, err := mutate(payload)
		if err != nil {
			return err
		}

		err = m.store.Write(ctx, key, next, version)
		if err == nil {
			return nil
		}
		if !IsConflict(err) {
			return err
		}

		lastConflict = err
		m.conflicts.Inc(ctx, metrics.L(LabelKey, key))
		m.logger.DebugContext(ctx, "optimistic write conflict, replaying mutate",
			append(correlation.LogFields(ctx),
				clog.String("key", key),
				clog.Int("attempt", attempt+1),
				clog.Int64("version", version))...)
	}

	m.exhaustions.Inc(ctx, metrics.L(LabelKey, key))
	m.logger.WarnContext(ctx, "optimistic update exhausted attempts",
		append(correlation.LogFields(ctx),
			clog.String("key", key),
			clog.Int("attempts", m.cfg.MaxAttempts),
			clog.Error(lastConflict))...)
	return lastConflict
}

// Delete 删除会话
func (m *manager) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return m.store.Delete(ctx, key)
}
