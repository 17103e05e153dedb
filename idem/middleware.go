package idem

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// KeyFunc 从请求中提取事件键，返回空串表示该请求无法去重
type KeyFunc func(c *gin.Context) string

// DefaultEventHeader 默认的事件键请求头
const DefaultEventHeader = "X-Event-ID"

// HeaderKeyFunc 从指定请求头提取事件键
func HeaderKeyFunc(header string) KeyFunc {
	return func(c *gin.Context) string {
		return c.GetHeader(header)
	}
}

// GinMiddleware 返回 Gin 幂等中间件
//
// 重复投递的请求直接以 200 确认并终止处理链，上游 webhook 平台据此停止重投；
// 无法提取事件键的请求不做去重，照常进入处理链。
//
// keyFn 为 nil 时默认从 X-Event-ID 请求头提取；
// class 用于选择持久层故障时的 FailMode（见 Config.Classes）。
func GinMiddleware(guard Guard, keyFn KeyFunc, class string) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = HeaderKeyFunc(DefaultEventHeader)
	}

	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		res, err := guard.Check(c.Request.Context(), key, ForClass(class))
		if err != nil {
			// 守卫自身不可用（已关闭等），不阻断业务处理
			c.Next()
			return
		}

		if res.Duplicate {
			c.Header("X-Idempotent-Replay", strconv.FormatInt(res.DeliveryCount, 10))
			c.JSON(http.StatusOK, gin.H{"status": "duplicate", "key": key})
			c.Abort()
			return
		}

		c.Next()
	}
}
