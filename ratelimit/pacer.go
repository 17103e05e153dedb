package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// PacerConfig 出站节流配置
type PacerConfig struct {
	// Rate 每秒放行的调用数（默认：50）
	Rate float64 `json:"rate" yaml:"rate"`

	// Burst 突发容量（默认：Rate 向上取整，至少 1）
	Burst int `json:"burst" yaml:"burst"`
}

func (c *PacerConfig) setDefaults() {
	if c.Rate <= 0 {
		c.Rate = 50
	}
	if c.Burst <= 0 {
		c.Burst = int(c.Rate)
		if c.Burst < 1 {
			c.Burst = 1
		}
	}
}

// Pacer 出站调用节流器
//
// 与 Windowed 的准入语义不同，Pacer 用令牌桶对出站调用整形：
// Wait 阻塞到有令牌可用（或 ctx 取消），用于对外部 API（如消息通道的
// 每秒调用上限）的平滑限速。键通常是依赖名，基数小且长期存活，
// 因此不做空闲清理。
type Pacer struct {
	cfg PacerConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPacer 创建出站节流器
func NewPacer(cfg *PacerConfig) *Pacer {
	if cfg == nil {
		cfg = &PacerConfig{}
	}
	cfgCopy := *cfg
	cfgCopy.setDefaults()

	return &Pacer{
		cfg:      cfgCopy,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait 阻塞直到获取一个令牌或 ctx 取消
func (p *Pacer) Wait(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return p.limiter(key).Wait(ctx)
}

// Allow 非阻塞尝试获取一个令牌
func (p *Pacer) Allow(key string) bool {
	if key == "" {
		return false
	}
	return p.limiter(key).Allow()
}

func (p *Pacer) limiter(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.cfg.Rate), p.cfg.Burst)
		p.limiters[key] = l
	}
	return l
}
