package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Counter is a windowed request counter, implemented by cache.Redis.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	TTL(ctx context.Context, key string) time.Duration
}

// KeyFunc picks the identity a limit applies to.
type KeyFunc func(c *gin.Context) string

// RateLimit allows limit requests per window for each key. When the
// counter is unreachable requests pass through.
func RateLimit(counter Counter, name string, limit int, window time.Duration, keyFn KeyFunc, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		key := "rate:" + name + ":" + keyFn(c)
		requests, err := counter.Increment(ctx, key, window)
		if err != nil {
			logger.Warn("⚠️ rate limit counter unavailable", zap.String("limit", name), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(limit) - requests
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if requests > int64(limit) {
			retry := counter.TTL(ctx, key)
			if retry <= 0 {
				retry = window
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			logger.Info("🚫 rate limited", zap.String("limit", name), zap.String("key", key))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": fmt.Sprintf("Too many requests. Try again in %d seconds", int(retry.Seconds())),
			})
			return
		}

		c.Next()
	}
}

// APIRateLimit limits every request per client IP.
func APIRateLimit(counter Counter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return RateLimit(counter, "api", limit, window, ClientIP, logger)
}

// OrderRateLimit limits order placement per customer, or per IP for
// requests without a customerId.
func OrderRateLimit(counter Counter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return RateLimit(counter, "orders", limit, window, CustomerOrIP, logger)
}

func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// CustomerOrIP peeks at the JSON body for customerId and restores it for
// the handler.
func CustomerOrIP(c *gin.Context) string {
	if c.Request.Body == nil {
		return "ip:" + c.ClientIP()
	}
	bodyBytes, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	if err != nil {
		return "ip:" + c.ClientIP()
	}

	var input struct {
		CustomerID *int `json:"customerId"`
	}
	if json.Unmarshal(bodyBytes, &input) != nil || input.CustomerID == nil {
		return "ip:" + c.ClientIP()
	}
	return "customer:" + strconv.Itoa(*input.CustomerID)
}
