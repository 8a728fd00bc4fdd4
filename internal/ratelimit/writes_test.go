package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeBucket struct {
	tokens int
	err    error
	keys   []string
}

func (f *fakeBucket) Allow(_ context.Context, key string, rate float64, burst int) (Result, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return Result{}, f.err
	}
	if f.tokens <= 0 {
		return result(false, 0, rate, burst), nil
	}
	f.tokens--
	return result(true, float64(f.tokens), rate, burst), nil
}

func newRouter(l *WriteLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/api/sales", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/sales", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func serve(r *gin.Engine, method string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, "/api/sales", nil))
	return rec
}

func TestWriteLimiterRejectsOverLimit(t *testing.T) {
	b := &fakeBucket{tokens: 2}
	r := newRouter(newWriteLimiter(zap.NewNop(), b, 2, 2))

	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost).Code)
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost).Code)

	rec := serve(r, http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet).Code)
	assert.Len(t, b.keys, 3)
	assert.Contains(t, b.keys[0], "shopbooks:ratelimit:writes:")
}

func TestWriteLimiterFailsOpen(t *testing.T) {
	b := &fakeBucket{err: errors.New("redis down")}
	r := newRouter(newWriteLimiter(zap.NewNop(), b, 1, 1))

	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost).Code)
}

func TestNilWriteLimiterAllows(t *testing.T) {
	var l *WriteLimiter
	r := newRouter(l)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost).Code)
	}
}

func TestNewWriteLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewWriteLimiter(config.Config{}, nil, zap.NewNop()))

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, WriteRate: 1, WriteBurst: 1}}
	assert.Nil(t, NewWriteLimiter(cfg, nil, zap.NewNop()))
}

func TestRetryAfter(t *testing.T) {
	res := result(false, 0.5, 2, 4)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)
	assert.Equal(t, 4, res.Limit)

	assert.Zero(t, result(true, 3, 2, 4).RetryAfter)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(2, 20))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}
