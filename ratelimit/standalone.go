package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/metrics"
)

// windowEntry 单键的固定窗口计数
type windowEntry struct {
	windowStart time.Time
	window      time.Duration
	count       int64
}

func (e *windowEntry) expired(now time.Time) bool {
	return now.Sub(e.windowStart) >= e.window
}

// standaloneLimiter 单机固定窗口限流器实现（非导出）
type standaloneLimiter struct {
	cfg    *StandaloneConfig
	logger clog.Logger

	mu      sync.Mutex
	entries map[string]*windowEntry
	stopCh  chan struct{}
	stopped bool

	// now 可注入时钟，测试用
	now func() time.Time

	allowedCounter  metrics.Counter
	deniedCounter   metrics.Counter
	evictionCounter metrics.Counter
}

func newStandalone(cfg *StandaloneConfig, logger clog.Logger, meter metrics.Meter) *standaloneLimiter {
	l := &standaloneLimiter{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*windowEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	if meter != nil {
		l.allowedCounter, _ = meter.Counter(MetricAllowed, "Requests admitted by the rate limiter")
		l.deniedCounter, _ = meter.Counter(MetricDenied, "Requests denied by the rate limiter")
		l.evictionCounter, _ = meter.Counter(MetricEvictions, "Expired window entries evicted")
	}

	go l.sweepLoop()

	if logger != nil {
		logger.Info("standalone rate limiter created",
			clog.Int("max_entries", cfg.MaxEntries),
			clog.Duration("sweep_interval", cfg.SweepInterval))
	}
	return l
}

// CheckAndConsume 消耗一次配额并返回判定结果
func (l *standaloneLimiter) CheckAndConsume(ctx context.Context, key string, rule Rule) (Decision, error) {
	if key == "" {
		return Decision{}, ErrKeyEmpty
	}
	if !rule.valid() {
		return Decision{}, ErrInvalidRule
	}

	now := l.now()

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return Decision{}, ErrLimiterClosed
	}

	e, ok := l.entries[key]
	if ok && e.expired(now) {
		// 窗口已过期，重置
		e.windowStart = now
		e.window = rule.Window
		e.count = 0
	}
	if !ok {
		if len(l.entries) >= l.cfg.MaxEntries {
			evicted := l.evictExpiredLocked(now)
			if len(l.entries) >= l.cfg.MaxEntries {
				l.mu.Unlock()
				// 无空位时拒绝新键而不是挤掉活跃键
				l.count(ctx, l.deniedCounter, metrics.L(LabelMode, "standalone"))
				if l.logger != nil {
					l.logger.Warn("rate limiter capacity exhausted, rejecting new key",
						clog.String("key", key),
						clog.Int("max_entries", l.cfg.MaxEntries))
				}
				return Decision{Allowed: false, ResetAfter: rule.Window}, ErrCapacityExhausted
			}
			if evicted > 0 {
				l.count(ctx, l.evictionCounter, metrics.L(LabelMode, "standalone"))
			}
		}
		e = &windowEntry{windowStart: now, window: rule.Window}
		l.entries[key] = e
	}

	e.count++
	count := e.count
	resetAfter := rule.Window - now.Sub(e.windowStart)
	l.mu.Unlock()

	d := Decision{
		Allowed:    count <= rule.Limit,
		Remaining:  max(0, rule.Limit-count),
		ResetAfter: resetAfter,
	}

	if d.Allowed {
		l.count(ctx, l.allowedCounter, metrics.L(LabelMode, "standalone"))
	} else {
		l.count(ctx, l.deniedCounter, metrics.L(LabelMode, "standalone"))
	}

	if l.logger != nil {
		l.logger.Debug("rate limit check",
			clog.String("key", key),
			clog.Bool("allowed", d.Allowed),
			clog.Int64("remaining", d.Remaining),
			clog.Duration("reset_after", d.ResetAfter))
	}
	return d, nil
}

// evictExpiredLocked 清除所有已过期的窗口，返回清除数量
// 调用方持有 l.mu
func (l *standaloneLimiter) evictExpiredLocked(now time.Time) int {
	evicted := 0
	for k, e := range l.entries {
		if e.expired(now) {
			delete(l.entries, k)
			evicted++
		}
	}
	return evicted
}

// sweepLoop 周期性清扫过期窗口，控制常态内存占用
func (l *standaloneLimiter) sweepLoop() {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := l.now()
			l.mu.Lock()
			evicted := l.evictExpiredLocked(now)
			l.mu.Unlock()

			if evicted > 0 && l.logger != nil {
				l.logger.Debug("swept idle rate limit entries", clog.Int("evicted", evicted))
			}
		case <-l.stopCh:
			return
		}
	}
}

// Close 停止后台清扫（幂等）
func (l *standaloneLimiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil
	}
	l.stopped = true
	close(l.stopCh)
	return nil
}

func (l *standaloneLimiter) count(ctx context.Context, c metrics.Counter, labels ...metrics.Label) {
	if c != nil {
		c.Inc(ctx, labels...)
	}
}
