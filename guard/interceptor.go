package guard

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ceyewan/anchor/retry"
)

// UnaryClientInterceptor 返回受 guard 保护的 gRPC 一元客户端拦截器
//
// 每次 RPC 按 dep 的策略执行（熔断 + 重试 + 单次尝试超时）。
// 配合 GRPCClassifier 使用，否则 gRPC 状态错误不会被判为可重试：
//
//	g, _ := guard.New(cfg, guard.WithClassifier(guard.GRPCClassifier))
//	conn, _ := grpc.NewClient(addr,
//		grpc.WithUnaryInterceptor(guard.UnaryClientInterceptor(g, "signing")))
func UnaryClientInterceptor(g Guard, dep string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return g.Do(ctx, dep, func(ctx context.Context) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		})
	}
}

// GRPCClassifier 在默认分类器之上识别 gRPC 状态码
//
// 可重试：Unavailable、DeadlineExceeded、ResourceExhausted、Aborted
func GRPCClassifier(err error) bool {
	if retry.DefaultClassifier(err) {
		return true
	}

	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
