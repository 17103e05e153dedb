package breaker

import (
	"sync"
)

// Registry 按依赖名持有熔断器单例
//
// Registry 由应用上下文构造并注入，而不是包级全局变量，
// 测试可以实例化互相隔离的 Registry 而无需全局重置。
//
// 使用示例:
//
//	reg := breaker.NewRegistry(&breaker.Config{FailureThreshold: 5},
//		breaker.WithLogger(logger))
//
//	// 关键依赖单独调优
//	wa := reg.Get("whatsapp", &breaker.Config{
//		FailureThreshold: 3,
//		OpenTimeout:      60 * time.Second,
//	})
//
//	// 其余依赖使用默认配置
//	ds := reg.Get("docusign", nil)
type Registry struct {
	defaults *Config
	opts     []Option

	mu       sync.Mutex
	breakers map[string]Breaker
}

// NewRegistry 创建熔断器注册表
//
// 参数:
//   - defaults: 默认配置，Get 未指定配置时使用；nil 时使用包默认值
//   - opts: 传递给每个熔断器的选项 (Logger, Meter, Fallback)
func NewRegistry(defaults *Config, opts ...Option) *Registry {
	return &Registry{
		defaults: defaults,
		opts:     opts,
		breakers: make(map[string]Breaker),
	}
}

// Get 返回依赖名对应的熔断器，首次访问时懒创建
//
// cfg 仅在首次创建时生效，nil 表示使用注册表默认配置；
// 同名后续调用返回既有实例（进程生命周期单例）。
func (r *Registry) Get(name string, cfg *Config) Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	if cfg == nil {
		cfg = r.defaults
	}

	b, err := New(name, cfg, r.opts...)
	if err != nil {
		// name 非空时 New 不会失败；空名由调用方保证
		panic(err)
	}
	r.breakers[name] = b
	return b
}

// Reset 重置指定依赖的熔断器，不存在时是 no-op
// 仅用于测试和管理端
func (r *Registry) Reset(name string) {
	r.mu.Lock()
	b, ok := r.breakers[name]
	r.mu.Unlock()

	if ok {
		b.Reset()
	}
}

// ResetAll 重置所有熔断器
func (r *Registry) ResetAll() {
	r.mu.Lock()
	all := make([]Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		all = append(all, b)
	}
	r.mu.Unlock()

	for _, b := range all {
		b.Reset()
	}
}

// Snapshots 返回所有熔断器的可观测快照，供管理端展示
func (r *Registry) Snapshots() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Snapshot, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Snapshot()
	}
	return out
}
