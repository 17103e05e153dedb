package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/connector"
	"github.com/ceyewan/anchor/metrics"
	"github.com/ceyewan/anchor/xerrors"
)

// windowScript 固定窗口计数脚本
// 首次命中设置窗口过期时间，计数与过期设置原子完成；
// 返回 {当前计数, 剩余毫秒}，由调用方与规则比较。
var windowScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`)

// distributedLimiter 分布式固定窗口限流器实现（非导出）
type distributedLimiter struct {
	conn   connector.RedisConnector
	prefix string
	logger clog.Logger

	allowedCounter metrics.Counter
	deniedCounter  metrics.Counter
}

func newDistributed(
	cfg *DistributedConfig,
	redisConn connector.RedisConnector,
	logger clog.Logger,
	meter metrics.Meter,
) *distributedLimiter {
	l := &distributedLimiter{
		conn:   redisConn,
		prefix: cfg.Prefix,
		logger: logger,
	}

	if meter != nil {
		l.allowedCounter, _ = meter.Counter(MetricAllowed, "Requests admitted by the rate limiter")
		l.deniedCounter, _ = meter.Counter(MetricDenied, "Requests denied by the rate limiter")
	}

	if logger != nil {
		logger.Info("distributed rate limiter created", clog.String("prefix", cfg.Prefix))
	}
	return l
}

// CheckAndConsume 消耗一次配额并返回判定结果
func (l *distributedLimiter) CheckAndConsume(ctx context.Context, key string, rule Rule) (Decision, error) {
	if key == "" {
		return Decision{}, ErrKeyEmpty
	}
	if !rule.valid() {
		return Decision{}, ErrInvalidRule
	}

	client := l.conn.GetClient()
	if client == nil {
		return Decision{}, connector.ErrClientNil
	}

	res, err := windowScript.Run(ctx, client,
		[]string{l.prefix + key},
		rule.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		if l.logger != nil {
			l.logger.Error("failed to execute window script",
				clog.String("key", key), clog.Error(err))
		}
		return Decision{}, xerrors.Wrap(err, "ratelimit: window script")
	}
	if len(res) != 2 {
		return Decision{}, xerrors.Newf("ratelimit: unexpected script reply length %d", len(res))
	}

	count, ttlMs := res[0], res[1]
	resetAfter := time.Duration(ttlMs) * time.Millisecond
	if ttlMs < 0 {
		resetAfter = rule.Window
	}

	d := Decision{
		Allowed:    count <= rule.Limit,
		Remaining:  max(0, rule.Limit-count),
		ResetAfter: resetAfter,
	}

	if d.Allowed {
		if l.allowedCounter != nil {
			l.allowedCounter.Inc(ctx, metrics.L(LabelMode, "distributed"))
		}
	} else if l.deniedCounter != nil {
		l.deniedCounter.Inc(ctx, metrics.L(LabelMode, "distributed"))
	}

	if l.logger != nil {
		l.logger.Debug("rate limit check",
			clog.String("key", key),
			clog.Bool("allowed", d.Allowed),
			clog.Int64("remaining", d.Remaining),
			clog.Duration("reset_after", d.ResetAfter))
	}
	return d, nil
}

// Close 释放资源（连接由 Connector 管理）
func (l *distributedLimiter) Close() error {
	return nil
}
