package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(limiter Windowed, rule Rule) *gin.Engine {
		r := gin.New()
		r.GET("/api",
			GinMiddleware(limiter,
				func(c *gin.Context) string { return c.GetHeader("X-Client") },
				func(*gin.Context) Rule { return rule }),
			func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
		return r
	}

	get := func(r *gin.Engine, client string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		if client != "" {
			req.Header.Set("X-Client", client)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("限额内放行并回写剩余配额", func(t *testing.T) {
		limiter, err := NewStandalone(nil)
		require.NoError(t, err)
		defer limiter.Close()
		r := newRouter(limiter, Rule{Limit: 2, Window: time.Minute})

		w := get(r, "c1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("超限返回 429 与 Retry-After", func(t *testing.T) {
		limiter, err := NewStandalone(nil)
		require.NoError(t, err)
		defer limiter.Close()
		r := newRouter(limiter, Rule{Limit: 1, Window: time.Minute})

		require.Equal(t, http.StatusOK, get(r, "c1").Code)

		w := get(r, "c1")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "reset_ms")
	})

	t.Run("无法提取键时放行", func(t *testing.T) {
		limiter, err := NewStandalone(nil)
		require.NoError(t, err)
		defer limiter.Close()
		r := newRouter(limiter, Rule{Limit: 1, Window: time.Minute})

		assert.Equal(t, http.StatusOK, get(r, "").Code)
		assert.Equal(t, http.StatusOK, get(r, "").Code)
	})

	t.Run("限流器故障时放行", func(t *testing.T) {
		r := newRouter(failingWindowed{}, Rule{Limit: 1, Window: time.Minute})
		assert.Equal(t, http.StatusOK, get(r, "c1").Code)
	})

	t.Run("基数耗尽按限流拒绝", func(t *testing.T) {
		limiter, err := NewStandalone(&StandaloneConfig{MaxEntries: 1})
		require.NoError(t, err)
		defer limiter.Close()
		r := newRouter(limiter, Rule{Limit: 5, Window: time.Minute})

		require.Equal(t, http.StatusOK, get(r, "c1").Code)
		assert.Equal(t, http.StatusTooManyRequests, get(r, "c2").Code)
	})
}

type failingWindowed struct{}

func (failingWindowed) CheckAndConsume(context.Context, string, Rule) (Decision, error) {
	return Decision{}, assert.AnError
}
func (failingWindowed) Close() error { return nil }
