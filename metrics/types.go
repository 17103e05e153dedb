// Package metrics 为 Anchor 提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，提供简洁的 Counter、Gauge、Histogram 指标接口。
//
// 架构说明：
//   - 属于 Anchor L0（Base）层，供 breaker、ratelimit、idem、guard 等组件注入
//   - 基于 OpenTelemetry SDK，内置 Prometheus HTTP 服务器暴露指标
//   - 未启用时返回 noop 实现，组件侧无需判空
//
// 快速开始：
//
//	meter, _ := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "webhook-gateway",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("webhook_events_total", "Inbound webhook events")
//	counter.Inc(ctx, metrics.L("class", "message"))
package metrics

import "context"

// Counter 计数器接口，记录只增不减的累计值
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口，记录可以任意增减的瞬时值
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图接口，记录值的分布（耗时、大小等）
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂接口
//
// 一个 Meter 实例对应一个服务，创建的指标线程安全。
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Shutdown 关闭 Meter，刷新所有指标
	Shutdown(ctx context.Context) error
}

// Label 指标标签
type Label struct {
	Key   string
	Value string
}

// L 创建标签的简写
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// MetricOption 指标配置选项函数类型
type MetricOption func(*metricOptions)

type metricOptions struct {
	unit string
}

// WithUnit 设置指标单位（如 "seconds"、"bytes"）
func WithUnit(unit string) MetricOption {
	return func(o *metricOptions) {
		o.unit = unit
	}
}

// Config 指标组件配置
type Config struct {
	// Enabled 是否启用指标收集（默认 false，返回 noop Meter）
	Enabled bool `json:"enabled" yaml:"enabled"`

	// ServiceName 服务名，作为指标资源属性
	ServiceName string `json:"service_name" yaml:"service_name"`

	// Version 服务版本
	Version string `json:"version" yaml:"version"`

	// Port Prometheus HTTP 服务器端口（0 表示不启动）
	Port int `json:"port" yaml:"port"`

	// Path 指标暴露路径（默认 "/metrics"）
	Path string `json:"path" yaml:"path"`
}
