package trace

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/stats"

	"github.com/ceyewan/anchor/correlation"
)

// GinMiddleware 返回 gin 的追踪中间件，为每个入站请求建立 server span
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// CorrelationPairing 把当前 span 的 trace id 写进关联上下文属性
//
// 日志侧可以据此从 correlation_id 跳到对应链路。必须注册在
// correlation.GinMiddleware 和 GinMiddleware 之后。
func CorrelationPairing() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := oteltrace.SpanFromContext(c.Request.Context())
		if sc := span.SpanContext(); sc.HasTraceID() {
			correlation.SetAttr(c.Request.Context(), "trace_id", sc.TraceID().String())
		}
		c.Next()
	}
}

// GRPCServerStatsHandler 返回 gRPC 服务端的追踪 stats handler
//
//	grpc.NewServer(grpc.StatsHandler(trace.GRPCServerStatsHandler()))
func GRPCServerStatsHandler() stats.Handler {
	return otelgrpc.NewServerHandler()
}

// GRPCClientStatsHandler 返回 gRPC 客户端的追踪 stats handler
//
//	grpc.NewClient(target, grpc.WithStatsHandler(trace.GRPCClientStatsHandler()))
func GRPCClientStatsHandler() stats.Handler {
	return otelgrpc.NewClientHandler()
}
