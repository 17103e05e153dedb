package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

// New 创建 Meter 实例
// cfg.Enabled 为 false 时返回 noop 实现
func New(cfg *Config) (Meter, error) {
	if cfg == nil || !cfg.Enabled {
		return Noop(), nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// 启动 Prometheus HTTP 服务器
	if cfg.Port > 0 {
		path := cfg.Path
		if path == "" {
			path = "/metrics"
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle(path, promhttp.Handler())
			server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
			_ = server.ListenAndServe()
		}()
	}

	return &meterImpl{
		meter:    mp.Meter("anchor"),
		provider: mp,
	}, nil
}

// Must 类似 New，但出错时 panic。仅用于初始化阶段。
func Must(cfg *Config) Meter {
	m, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create metrics: %v", err))
	}
	return m
}

// meterImpl 实现 Meter 接口
type meterImpl struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
}

func (m *meterImpl) Counter(name string, desc string, opts ...MetricOption) (Counter, error) {
	o := applyMetricOptions(opts...)
	c, err := m.meter.Float64Counter(name,
		metric.WithDescription(desc), metric.WithUnit(o.unit))
	if err != nil {
		return nil, err
	}
	return &counterImpl{c: c}, nil
}

func (m *meterImpl) Gauge(name string, desc string, opts ...MetricOption) (Gauge, error) {
	o := applyMetricOptions(opts...)
	g, err := m.meter.Float64UpDownCounter(name,
		metric.WithDescription(desc), metric.WithUnit(o.unit))
	if err != nil {
		return nil, err
	}
	return &gaugeImpl{g: g}, nil
}

func (m *meterImpl) Histogram(name string, desc string, opts ...MetricOption) (Histogram, error) {
	o := applyMetricOptions(opts...)
	h, err := m.meter.Float64Histogram(name,
		metric.WithDescription(desc), metric.WithUnit(o.unit))
	if err != nil {
		return nil, err
	}
	return &histogramImpl{h: h}, nil
}

func (m *meterImpl) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func applyMetricOptions(opts ...MetricOption) *metricOptions {
	o := &metricOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func toAttributes(labels []Label) metric.MeasurementOption {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}
	return metric.WithAttributes(attrs...)
}

type counterImpl struct {
	c metric.Float64Counter
}

func (c *counterImpl) Inc(ctx context.Context, labels ...Label) {
	c.c.Add(ctx, 1, toAttributes(labels))
}

func (c *counterImpl) Add(ctx context.Context, val float64, labels ...Label) {
	c.c.Add(ctx, val, toAttributes(labels))
}

type gaugeImpl struct {
	g metric.Float64UpDownCounter
}

// Set 通过记录差值模拟，UpDownCounter 不支持直接 Set，
// 这里退化为直接累加目标值，适用于启动后单调设置的场景。
func (g *gaugeImpl) Set(ctx context.Context, val float64, labels ...Label) {
	g.g.Add(ctx, val, toAttributes(labels))
}

func (g *gaugeImpl) Inc(ctx context.Context, labels ...Label) {
	g.g.Add(ctx, 1, toAttributes(labels))
}

func (g *gaugeImpl) Dec(ctx context.Context, labels ...Label) {
	g.g.Add(ctx, -1, toAttributes(labels))
}

type histogramImpl struct {
	h metric.Float64Histogram
}

func (h *histogramImpl) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, toAttributes(labels))
}
