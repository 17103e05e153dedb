package correlation

import (
	"github.com/gin-gonic/gin"
)

// HeaderName 入站/出站关联标识 Header
const HeaderName = "X-Correlation-ID"

// GinMiddleware 创建 Gin 关联上下文中间件
//
// 优先继承入站 Header 中的 correlation id，否则生成新的；
// 响应中回写同名 Header，便于调用方对账。
//
// 使用示例:
//
//	r := gin.New()
//	r.Use(correlation.GinMiddleware())
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts []Option
		if id := c.GetHeader(HeaderName); id != "" {
			opts = append(opts, WithID(id))
		}

		ctx := NewContext(c.Request.Context(), opts...)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderName, ID(ctx))

		c.Next()
	}
}
