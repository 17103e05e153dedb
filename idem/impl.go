package idem

import (
	"context"
	"sync/atomic"

	"github.com/maypok86/otter/v2"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/correlation"
	"github.com/ceyewan/anchor/metrics"
)

// guardImpl 幂等守卫实现（非导出）
type guardImpl struct {
	cfg    *Config
	store  Store
	logger clog.Logger
	meter  metrics.Meter

	// recent 近期键缓存，值为该键已知的累计投递次数
	recent *otter.Cache[string, int64]

	closed atomic.Bool

	checks        metrics.Counter
	duplicates    metrics.Counter
	storeFailures metrics.Counter
}

func newGuard(cfg *Config, store Store, logger clog.Logger, meter metrics.Meter) (*guardImpl, error) {
	if logger == nil {
		logger = clog.Discard()
	}
	if meter == nil {
		meter = metrics.Noop()
	}

	recent, err := otter.New(&otter.Options[string, int64]{
		MaximumSize:      cfg.RecentCapacity,
		ExpiryCalculator: otter.ExpiryWriting[string, int64](cfg.RecentTTL),
	})
	if err != nil {
		return nil, err
	}

	g := &guardImpl{
		cfg:    cfg,
		store:  store,
		logger: logger,
		meter:  meter,
		recent: recent,
	}
	g.checks = mustCounter(meter, MetricChecks, "Idempotency checks")
	g.duplicates = mustCounter(meter, MetricDuplicates, "Duplicate deliveries detected")
	g.storeFailures = mustCounter(meter, MetricStoreFailures, "Idempotency store failures")
	return g, nil
}

// mustCounter 指标创建失败时回退到 noop，不阻断守卫启动
func mustCounter(meter metrics.Meter, name, desc string) metrics.Counter {
	c, err := meter.Counter(name, desc)
	if err != nil || c == nil {
		noop, _ := metrics.Noop().Counter(name, desc)
		return noop
	}
	return c
}

// Check 注册并判定一个事件键
func (g *guardImpl) Check(ctx context.Context, key string, opts ...CheckOption) (Result, error) {
	if key == "" {
		return Result{}, ErrKeyEmpty
	}
	if g.closed.Load() {
		return Result{}, ErrGuardClosed
	}

	co := checkOptions{}
	for _, o := range opts {
		o(&co)
	}
	g.checks.Inc(ctx, metrics.L(LabelClass, co.classLabel()))

	// 热路径：近期见过的键直接判重，不触达持久层
	if n, ok := g.recent.GetIfPresent(key); ok {
		n++
		g.recent.Set(key, n)
		g.duplicates.Inc(ctx, metrics.L(LabelClass, co.classLabel()), metrics.L(LabelTier, "recent"))
		return Result{Duplicate: true, DeliveryCount: n}, nil
	}

	inserted, count, err := g.store.RegisterIfAbsent(ctx, key)
	if err != nil {
		return g.degrade(ctx, key, co.class, err)
	}

	g.recent.Set(key, count)
	if inserted {
		return Result{Duplicate: false, DeliveryCount: 0}, nil
	}

	g.duplicates.Inc(ctx, metrics.L(LabelClass, co.classLabel()), metrics.L(LabelTier, "store"))
	return Result{Duplicate: true, DeliveryCount: count}, nil
}

// degrade 持久层故障时按类别策略合成判定结果
func (g *guardImpl) degrade(ctx context.Context, key, class string, cause error) (Result, error) {
	mode := g.cfg.failModeFor(class)
	g.storeFailures.Inc(ctx,
		metrics.L(LabelClass, classLabel(class)),
		metrics.L(LabelFailMode, string(mode)))

	fields := append(correlation.LogFields(ctx),
		clog.String("key", key),
		clog.String("class", classLabel(class)),
		clog.String("fail_mode", string(mode)),
		clog.Error(cause))
	g.logger.WarnContext(ctx, "idempotency store unavailable, degrading", fields...)

	if mode == FailClosed {
		// 宁可丢弃不可重复执行：当作重复投递
		return Result{Duplicate: true}, nil
	}
	// 宁可重复不可丢失：当作首次投递
	return Result{Duplicate: false}, nil
}

// Forget 删除一个键的幂等记录
func (g *guardImpl) Forget(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if g.closed.Load() {
		return ErrGuardClosed
	}

	g.recent.Invalidate(key)
	return g.store.Remove(ctx, key)
}

// Close 释放内部资源（幂等）
func (g *guardImpl) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	g.recent.StopAllGoroutines()
	return nil
}

func classLabel(class string) string {
	if class == "" {
		return "default"
	}
	return class
}
