package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopbooks/internal/config"
	"go.uber.org/zap"
)

const keyWrites = "shopbooks:ratelimit:writes:%s"

type bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (Result, error)
}

// WriteLimiter throttles mutating API calls per client address. A nil
// limiter allows everything.
type WriteLimiter struct {
	log    *zap.Logger
	bucket bucket
	rate   float64
	burst  int
}

// NewWriteLimiter returns nil unless rate limiting is enabled and a redis
// client is available.
func NewWriteLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *WriteLimiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil
	}
	if client == nil {
		log.Warn("rate limiting needs redis; writes are not limited")
		return nil
	}
	if limitCfg.WriteRate <= 0 || limitCfg.WriteBurst <= 0 {
		log.Warn("rate limit must be positive; writes are not limited",
			zap.Float64("rate", limitCfg.WriteRate),
			zap.Int("burst", limitCfg.WriteBurst),
		)
		return nil
	}
	return newWriteLimiter(log, NewTokenBucket(client), limitCfg.WriteRate, limitCfg.WriteBurst)
}

func newWriteLimiter(log *zap.Logger, b bucket, rate float64, burst int) *WriteLimiter {
	return &WriteLimiter{
		log:    log.Named("ratelimit.writes"),
		bucket: b,
		rate:   rate,
		burst:  burst,
	}
}

// Middleware rejects over-limit mutations with 429. Reads and redis
// failures pass through.
func (l *WriteLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		client := strings.TrimSpace(c.ClientIP())
		if client == "" {
			client = "unknown"
		}

		res, err := l.bucket.Allow(c.Request.Context(), fmt.Sprintf(keyWrites, client), l.rate, l.burst)
		if err != nil {
			l.log.Warn("rate limit check failed", zap.String("client", client), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"type": "rate_limited", "message": "too many requests"},
			})
			return
		}
		c.Next()
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
