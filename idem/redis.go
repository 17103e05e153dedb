package idem

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/anchor/connector"
	"github.com/ceyewan/anchor/xerrors"
)

// registerScript 原子注册脚本
// HINCRBY 的返回值区分首次（1）与重复（>1），首次注册时记录首见时间并设置 TTL，
// 保证计数递增与过期设置在同一个原子步骤内完成。
var registerScript = redis.NewScript(`
local c = redis.call("HINCRBY", KEYS[1], "count", 1)
if c == 1 then
	redis.call("HSET", KEYS[1], "first_seen_ms", ARGV[2])
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// redisStore Redis 持久层实现（非导出）
type redisStore struct {
	conn   connector.RedisConnector
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 持久层
// 跨实例共享幂等记录，是多副本部署下的默认选择
func NewRedisStore(conn connector.RedisConnector, prefix string, ttl time.Duration) Store {
	if prefix == "" {
		prefix = "anchor:idem:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{conn: conn, prefix: prefix, ttl: ttl}
}

// RegisterIfAbsent 原子注册一个键
func (s *redisStore) RegisterIfAbsent(ctx context.Context, key string) (bool, int64, error) {
	client := s.conn.GetClient()
	if client == nil {
		return false, 0, connector.ErrClientNil
	}

	n, err := registerScript.Run(ctx, client,
		[]string{s.prefix + key},
		s.ttl.Milliseconds(),
		time.Now().UnixMilli(),
	).Int64()
	if err != nil {
		return false, 0, xerrors.Wrap(err, "idem: register key")
	}

	// 脚本返回累计投递次数（首次为 1），对外暴露的是此前投递次数
	return n == 1, n - 1, nil
}

// Lookup 查询一个键的幂等记录
func (s *redisStore) Lookup(ctx context.Context, key string) (*Record, error) {
	client := s.conn.GetClient()
	if client == nil {
		return nil, connector.ErrClientNil
	}

	vals, err := client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return nil, xerrors.Wrap(err, "idem: lookup key")
	}
	if len(vals) == 0 {
		return nil, nil
	}

	count, _ := strconv.ParseInt(vals["count"], 10, 64)
	firstMs, _ := strconv.ParseInt(vals["first_seen_ms"], 10, 64)
	return &Record{
		Key:           key,
		FirstSeenAt:   time.UnixMilli(firstMs),
		DeliveryCount: count - 1,
	}, nil
}

// Remove 删除一个键的幂等记录
func (s *redisStore) Remove(ctx context.Context, key string) error {
	client := s.conn.GetClient()
	if client == nil {
		return connector.ErrClientNil
	}
	if err := client.Del(ctx, s.prefix+key).Err(); err != nil {
		return xerrors.Wrap(err, "idem: remove key")
	}
	return nil
}
