// Package connector 为 Anchor 提供统一的连接管理能力。
//
// 核心特性：
//   - 统一抽象：通过 Connector 接口提供一致的连接管理 API
//   - 显式依赖注入：通过构造函数注入，避免全局状态
//   - 幂等连接：Connect() 可安全重复调用
//   - 延迟连接：NewRedis() 创建连接器但不立即建立连接
//
// 资源所有权：
//
//	Connector 拥有底层连接的生命周期，应通过 defer 确保 Close() 被调用。
//	组件（如 idem、session、ratelimit）仅借用 Connector，不应调用 Close()。
//
// 基本使用：
//
//	conn, _ := connector.NewRedis(&connector.RedisConfig{
//		Addr: "127.0.0.1:6379",
//	}, connector.WithLogger(logger))
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		panic(err)
//	}
//	client := conn.GetClient()
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connector 定义所有连接器的通用行为
// 接口方法均为并发安全
type Connector interface {
	// Connect 建立连接，幂等，可安全多次调用
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，幂等
	Close() error

	// HealthCheck 检查连接健康状态
	HealthCheck(ctx context.Context) error

	// Name 返回连接器名称
	Name() string
}

// RedisConnector Redis 连接器接口
type RedisConnector interface {
	Connector

	// GetClient 返回底层 Redis 客户端，未连接或已关闭时返回 nil
	GetClient() *redis.Client
}
