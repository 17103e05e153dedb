package testkit

import (
	"context"
	"fmt"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/anchor/connector"
)

// StartRedis 启动一个 Redis 测试容器并返回连接配置
// 容器生命周期由 t.Cleanup 管理；-short 模式下跳过测试
func StartRedis(t *testing.T) *connector.RedisConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return &connector.RedisConfig{
		Name:     "test-redis",
		Addr:     fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		PoolSize: 10,
	}
}

// GetRedisConnector 启动容器并返回已连接的 Redis 连接器
func GetRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	cfg := StartRedis(t)

	conn, err := connector.NewRedis(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// GetRedisClient 启动容器并返回原生 Redis 客户端
func GetRedisClient(t *testing.T) *goredis.Client {
	t.Helper()
	return GetRedisConnector(t).GetClient()
}

// FlushRedis 清空 Redis 数据库（仅限测试容器）
func FlushRedis(t *testing.T, client *goredis.Client) {
	t.Helper()
	require.NoError(t, client.FlushDB(context.Background()).Err(), "failed to flush redis")
}
