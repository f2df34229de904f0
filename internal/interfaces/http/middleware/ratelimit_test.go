package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("counts down within a window", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		ok, remaining := limiter.Allow("pos-terminal-1")
		assert.True(t, ok)
		assert.Equal(t, 2, remaining)

		ok, remaining = limiter.Allow("pos-terminal-1")
		assert.True(t, ok)
		assert.Equal(t, 1, remaining)

		ok, remaining = limiter.Allow("pos-terminal-1")
		assert.True(t, ok)
		assert.Equal(t, 0, remaining)

		ok, _ = limiter.Allow("pos-terminal-1")
		assert.False(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)

		ok, _ := limiter.Allow("terminal-a")
		assert.True(t, ok)
		ok, _ = limiter.Allow("terminal-a")
		assert.False(t, ok)

		ok, _ = limiter.Allow("terminal-b")
		assert.True(t, ok)
	})

	t.Run("a fresh window refills the bucket", func(t *testing.T) {
		limiter := NewRateLimiter(2, 40*time.Millisecond)

		limiter.Allow("terminal-c")
		limiter.Allow("terminal-c")
		ok, _ := limiter.Allow("terminal-c")
		assert.False(t, ok)

		time.Sleep(50 * time.Millisecond)

		ok, remaining := limiter.Allow("terminal-c")
		assert.True(t, ok)
		assert.Equal(t, 1, remaining)
	})

	t.Run("retry-after covers the rest of the window", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)

		assert.Zero(t, limiter.RetryAfter("terminal-d"))

		limiter.Allow("terminal-d")
		wait := limiter.RetryAfter("terminal-d")
		assert.Greater(t, wait, 50*time.Second)
		assert.LessOrEqual(t, wait, time.Minute)
	})

	t.Run("never admits more than the limit under contention", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)

		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0
		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := limiter.Allow("shared"); ok {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 100, admitted)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(RateLimit(limiter))
		router.GET("/api/v1/sales", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("passes requests through and reports remaining quota", func(t *testing.T) {
		router := newRouter(NewRateLimiter(3, time.Minute))

		req := httptest.NewRequest("GET", "/api/v1/sales", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("rejects with the standard error envelope once exhausted", func(t *testing.T) {
		router := newRouter(NewRateLimiter(1, time.Minute))

		req := httptest.NewRequest("GET", "/api/v1/sales", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest("GET", "/api/v1/sales", nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
		assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("branches behind the same IP get separate quotas", func(t *testing.T) {
		router := newRouter(NewRateLimiter(1, time.Minute))

		send := func(branchID string) int {
			req := httptest.NewRequest("GET", "/api/v1/sales", nil)
			req.Header.Set(BranchHeaderKey, branchID)
			req.RemoteAddr = "10.0.0.7:51000"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w.Code
		}

		assert.Equal(t, http.StatusOK, send("branch-colombo"))
		assert.Equal(t, http.StatusTooManyRequests, send("branch-colombo"))
		assert.Equal(t, http.StatusOK, send("branch-kandy"))
	})
}
