package correlation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	t.Run("自动生成 correlation id", func(t *testing.T) {
		ctx := NewContext(context.Background())
		assert.NotEmpty(t, ID(ctx))
	})

	t.Run("继承指定的 id", func(t *testing.T) {
		ctx := NewContext(context.Background(), WithID("req-42"))
		assert.Equal(t, "req-42", ID(ctx))
	})

	t.Run("重复建立不覆盖已有上下文", func(t *testing.T) {
		ctx := NewContext(context.Background())
		id := ID(ctx)
		again := NewContext(ctx)
		assert.Equal(t, id, ID(again))
	})

	t.Run("无上下文时 ID 返回空", func(t *testing.T) {
		assert.Equal(t, "", ID(context.Background()))
	})
}

func TestAttrs(t *testing.T) {
	ctx := NewContext(context.Background(), WithAttrs(map[string]any{"channel": "whatsapp"}))

	v, ok := Attr(ctx, "channel")
	require.True(t, ok)
	assert.Equal(t, "whatsapp", v)

	t.Run("SetAttr 原地生效，无需重新派生", func(t *testing.T) {
		inner := func(c context.Context) {
			SetAttr(c, "message_id", "wamid.123")
		}
		inner(ctx)

		v, ok := Attr(ctx, "message_id")
		require.True(t, ok)
		assert.Equal(t, "wamid.123", v)
	})

	t.Run("无上下文时 SetAttr 是 no-op", func(t *testing.T) {
		SetAttr(context.Background(), "k", "v")
		_, ok := Attr(context.Background(), "k")
		assert.False(t, ok)
	})
}

func TestIsolation(t *testing.T) {
	// 并发交织的无关请求之间不得互相泄漏
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx := NewContext(context.Background())
			id := ID(ctx)
			SetAttr(ctx, "n", n)
			time.Sleep(time.Millisecond)

			assert.Equal(t, id, ID(ctx))
			v, ok := Attr(ctx, "n")
			require.True(t, ok)
			assert.Equal(t, n, v)
		}(i)
	}
	wg.Wait()
}

func TestElapsed(t *testing.T) {
	ctx := NewContext(context.Background())
	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, Elapsed(ctx), 10*time.Millisecond)
	assert.Equal(t, time.Duration(0), Elapsed(context.Background()))
}

func TestRun(t *testing.T) {
	var seen string
	err := Run(context.Background(), func(ctx context.Context) error {
		seen = ID(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("生成并回写 Header", func(t *testing.T) {
		r := gin.New()
		r.Use(GinMiddleware())
		r.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, ID(c.Request.Context()))
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(HeaderName))
		assert.Equal(t, w.Header().Get(HeaderName), w.Body.String())
	})

	t.Run("继承入站 Header", func(t *testing.T) {
		r := gin.New()
		r.Use(GinMiddleware())
		r.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, ID(c.Request.Context()))
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderName, "upstream-7")
		r.ServeHTTP(w, req)

		assert.Equal(t, "upstream-7", w.Body.String())
	})
}

func TestLogFields(t *testing.T) {
	assert.Nil(t, LogFields(context.Background()))

	ctx := NewContext(context.Background(), WithID("abc"))
	fields := LogFields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, "correlation_id", fields[0].Key)
}
