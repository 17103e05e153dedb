package session

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/anchor/connector"
	"github.com/ceyewan/anchor/xerrors"
)

// casScript 比较版本并写入
// 版本存在哈希的 version 字段，写入成功时原子加一；
// 版本不匹配时返回 {0, 当前版本} 供构造冲突错误。
var casScript = redis.NewScript(`
local v = tonumber(redis.call("HGET", KEYS[1], "version") or "0")
if v ~= tonumber(ARGV[1]) then
	return {0, v}
end
redis.call("HSET", KEYS[1], "payload", ARGV[2], "version", v + 1)
if tonumber(ARGV[3]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return {1, v + 1}
`)

// redisStore Redis 版本化存储（非导出）
type redisStore struct {
	conn   connector.RedisConnector
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 版本化存储
//
// ttl 为 0 表示会话不过期；非 0 时每次成功写入都会刷新过期时间。
func NewRedisStore(conn connector.RedisConnector, prefix string, ttl time.Duration) VersionedStore {
	if prefix == "" {
		prefix = "anchor:session:"
	}
	return &redisStore{conn: conn, prefix: prefix, ttl: ttl}
}

// Read 读取会话负载与当前版本
func (s *redisStore) Read(ctx context.Context, key string) ([]byte, int64, error) {
	client := s.conn.GetClient()
	if client == nil {
		return nil, 0, connector.ErrClientNil
	}

	vals, err := client.HMGet(ctx, s.prefix+key, "payload", "version").Result()
	if err != nil {
		return nil, 0, xerrors.Wrap(err, "session: read")
	}
	if vals[1] == nil {
		return nil, 0, nil
	}

	payload, _ := vals[0].(string)
	versionStr, _ := vals[1].(string)
	version, err := strconv.ParseInt(versionStr, 10, 64)
	if err != nil {
		return nil, 0, xerrors.Wrapf(err, "session: malformed version %q", versionStr)
	}
	return []byte(payload), version, nil
}

// Write 以期望版本写入
func (s *redisStore) Write(ctx context.Context, key string, payload []byte, expectedVersion int64) error {
	client := s.conn.GetClient()
	if client == nil {
		return connector.ErrClientNil
	}

	res, err := casScript.Run(ctx, client,
		[]string{s.prefix + key},
		expectedVersion,
		string(payload),
		s.ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return xerrors.Wrap(err, "session: write")
	}
	if len(res) != 2 {
		return xerrors.Newf("session: unexpected cas reply length %d", len(res))
	}

	if res[0] == 0 {
		return &ConflictError{Key: key, Expected: expectedVersion, Actual: res[1]}
	}
	return nil
}

// Delete 删除会话
func (s *redisStore) Delete(ctx context.Context, key string) error {
	client := s.conn.GetClient()
	if client == nil {
		return connector.ErrClientNil
	}
	if err := client.Del(ctx, s.prefix+key).Err(); err != nil {
		return xerrors.Wrap(err, "session: delete")
	}
	return nil
}
