// Package correlation 提供请求级关联上下文，贯穿一次逻辑请求的整个异步调用链。
//
// 入站请求在边界处通过 NewContext 建立关联上下文（生成或继承 correlation id），
// 之后调用树中的任何代码都可以通过 ID / Attr / SetAttr 环境式读写，
// 无需在函数签名中显式透传请求标识。
//
// 基本使用：
//
//	ctx := correlation.NewContext(ctx)
//	logger.InfoContext(ctx, "processing")  // 日志自动携带 correlation_id
//
//	// 调用树深处
//	id := correlation.ID(ctx)
//	correlation.SetAttr(ctx, "phone", masked)
//
// 入站边界（gin）：
//
//	r.Use(correlation.GinMiddleware())
//
// 注意：属性按约定只增不改；上下文持有者是请求私有的，
// 并发交织的无关请求之间不会互相泄漏。
package correlation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/anchor/clog"
)

// ctxKey 上下文键（非导出，避免冲突）
type ctxKey struct{}

// holder 一次逻辑请求的关联上下文载体
// 以指针存入 context，SetAttr 原地修改，无需重新派生 context
type holder struct {
	id    string
	start time.Time

	mu    sync.RWMutex
	attrs map[string]any
}

// Option 上下文创建选项
type Option func(*holder)

// WithID 指定 correlation id（例如从入站 Header 继承）
func WithID(id string) Option {
	return func(h *holder) {
		if id != "" {
			h.id = id
		}
	}
}

// WithAttrs 设置初始属性
func WithAttrs(attrs map[string]any) Option {
	return func(h *holder) {
		for k, v := range attrs {
			h.attrs[k] = v
		}
	}
}

// NewContext 建立关联上下文
//
// 如果 ctx 中已存在关联上下文且未指定新 id，则原样返回，
// 保证一次请求内只有一个持有者。
func NewContext(ctx context.Context, opts ...Option) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	h := &holder{
		id:    uuid.NewString(),
		start: time.Now(),
		attrs: make(map[string]any),
	}
	for _, opt := range opts {
		opt(h)
	}

	if existing := fromContext(ctx); existing != nil && len(opts) == 0 {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, h)
}

// Run 在新的关联上下文中执行 fn
func Run(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	return fn(NewContext(ctx, opts...))
}

func fromContext(ctx context.Context) *holder {
	if ctx == nil {
		return nil
	}
	h, _ := ctx.Value(ctxKey{}).(*holder)
	return h
}

// ID 返回当前关联上下文的 correlation id，不存在时返回空字符串
func ID(ctx context.Context) string {
	if h := fromContext(ctx); h != nil {
		return h.id
	}
	return ""
}

// Attr 读取关联上下文中的属性
func Attr(ctx context.Context, key string) (any, bool) {
	h := fromContext(ctx)
	if h == nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.attrs[key]
	return v, ok
}

// SetAttr 写入关联上下文属性（按约定只增不改）
// 上下文不存在时是 no-op
func SetAttr(ctx context.Context, key string, value any) {
	h := fromContext(ctx)
	if h == nil {
		return
	}
	h.mu.Lock()
	h.attrs[key] = value
	h.mu.Unlock()
}

// Attrs 返回属性快照
func Attrs(ctx context.Context) map[string]any {
	h := fromContext(ctx)
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]any, len(h.attrs))
	for k, v := range h.attrs {
		out[k] = v
	}
	return out
}

// Elapsed 返回自上下文创建以来经过的时间
// 链式操作可据此检查剩余时间预算
func Elapsed(ctx context.Context) time.Duration {
	if h := fromContext(ctx); h != nil {
		return time.Since(h.start)
	}
	return 0
}

// LogFields 供 clog.WithContextFunc 使用的字段提取函数
//
//	logger, _ := clog.New(cfg, clog.WithContextFunc(correlation.LogFields))
func LogFields(ctx context.Context) []clog.Field {
	h := fromContext(ctx)
	if h == nil {
		return nil
	}
	return []clog.Field{clog.String("correlation_id", h.id)}
}
