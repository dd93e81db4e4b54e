package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LimitsBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := New(Config{RPS: 0.001, Burst: 2, CleanupInterval: time.Minute, MaxAge: time.Minute})
	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLimiter_Cleanup(t *testing.T) {
	now := time.Now()
	l := New(Config{RPS: 1, Burst: 1, MaxAge: time.Minute})
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * time.Minute)
	l.Allow("b")
	l.Cleanup()

	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "b")
}
