package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/anchor/xerrors"
)

// GinMiddleware 创建 Gin 限流中间件
//
// 拒绝时返回 429，并携带 Retry-After（秒，向上取整）与
// X-RateLimit-Limit / X-RateLimit-Remaining 响应头。
//
// 参数:
//   - limiter: 固定窗口限流器
//   - keyFunc: 从请求中提取限流键的函数，nil 时默认使用客户端 IP
//   - ruleFunc: 获取限流规则的函数
//
// 使用示例:
//
//	r := gin.New()
//	r.Use(ratelimit.GinMiddleware(limiter, nil, func(c *gin.Context) ratelimit.Rule {
//		return ratelimit.Rule{Limit: 100, Window: time.Minute}
//	}))
func GinMiddleware(
	limiter Windowed,
	keyFunc func(*gin.Context) string,
	ruleFunc func(*gin.Context) Rule,
) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string {
			return c.ClientIP()
		}
	}

	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		rule := ruleFunc(c)
		if !rule.valid() {
			c.Next()
			return
		}

		d, err := limiter.CheckAndConsume(c.Request.Context(), key, rule)
		if err != nil {
			if xerrors.Is(err, ErrCapacityExhausted) {
				// 键基数耗尽是保护性拒绝，按限流处理
				reject(c, rule, d)
				return
			}
			// 其他系统性故障放行，避免限流器故障放大为全站不可用
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(rule.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			reject(c, rule, d)
			return
		}

		c.Next()
	}
}

func reject(c *gin.Context, rule Rule, d Decision) {
	retryAfter := int64(d.ResetAfter.Seconds())
	if d.ResetAfter.Seconds() > float64(retryAfter) {
		retryAfter++
	}
	if retryAfter < 1 {
		retryAfter = 1
	}

	c.Header("X-RateLimit-Limit", strconv.FormatInt(rule.Limit, 10))
	c.Header("X-RateLimit-Remaining", "0")
	c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":    "rate limit exceeded",
		"reset_ms": d.ResetAfter.Milliseconds(),
	})
}
