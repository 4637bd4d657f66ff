package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aegis/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis        *redis.Client
	Requests     int
	Window       time.Duration
	KeyPrefix    string
	SkipPaths    []string
	ErrorMessage string
}

// RateLimitStrategy selects what a limit is keyed on
type RateLimitStrategy string

const (
	StrategyIP       RateLimitStrategy = "ip"
	StrategyUser     RateLimitStrategy = "user"
	StrategyUserOrIP RateLimitStrategy = "user_or_ip"
)

// RateLimiter enforces a sliding-window limit backed by Redis sorted sets.
type RateLimiter struct {
	config   RateLimitConfig
	strategy RateLimitStrategy
}

func NewRateLimiter(config RateLimitConfig, strategy RateLimitStrategy) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	if config.ErrorMessage == "" {
		config.ErrorMessage = "Rate limit exceeded"
	}

	return &RateLimiter{
		config:   config,
		strategy: strategy,
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		if rl.shouldSkipPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := rl.getKey(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, resetTime, remaining, err := rl.checkRateLimit(key)
		if err != nil {
			// Fail open so a Redis outage never blocks emergency traffic.
			logrus.Errorf("Rate limit check failed: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			rl.handleRateLimitExceeded(c, resetTime)
			return
		}

		c.Next()
	})
}

// checkRateLimit runs the sliding window log against Redis.
func (rl *RateLimiter) checkRateLimit(key string) (allowed bool, resetTime time.Time, remaining int, err error) {
	ctx := context.Background()
	now := time.Now()
	window := rl.config.Window

	pipe := rl.config.Redis.Pipeline()

	expiredBefore := now.Add(-window).UnixNano()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", expiredBefore))
	pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, window+time.Minute)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, time.Time{}, 0, err
	}

	currentCount := results[1].(*redis.IntCmd).Val()

	remaining = rl.config.Requests - int(currentCount) - 1
	if remaining < 0 {
		remaining = 0
	}

	resetTime = now.Add(window)
	allowed = currentCount < int64(rl.config.Requests)

	if !allowed {
		rl.config.Redis.ZRem(ctx, key, fmt.Sprintf("%d", now.UnixNano()))
	}

	return allowed, resetTime, remaining, nil
}

func (rl *RateLimiter) getKey(c *gin.Context) string {
	prefix := rl.config.KeyPrefix

	switch rl.strategy {
	case StrategyUser:
		userID := c.GetString("userID")
		if userID == "" {
			return ""
		}
		return fmt.Sprintf("%s:user:%s", prefix, userID)

	case StrategyUserOrIP:
		if userID := c.GetString("userID"); userID != "" {
			return fmt.Sprintf("%s:user:%s", prefix, userID)
		}
		return fmt.Sprintf("%s:ip:%s", prefix, rl.getClientIP(c))

	default:
		return fmt.Sprintf("%s:ip:%s", prefix, rl.getClientIP(c))
	}
}

func (rl *RateLimiter) getClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return xri
	}

	return c.ClientIP()
}

func (rl *RateLimiter) handleRateLimitExceeded(c *gin.Context, resetTime time.Time) {
	retryAfter := time.Until(resetTime).Seconds()
	if retryAfter < 0 {
		retryAfter = 0
	}

	c.Header("Retry-After", strconv.Itoa(int(retryAfter)))

	logrus.WithFields(logrus.Fields{
		"client_ip":   rl.getClientIP(c),
		"user_id":     c.GetString("userID"),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"retry_after": retryAfter,
	}).Warn("Rate limit exceeded")

	c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
		Error:     "RATE_LIMIT_EXCEEDED",
		Message:   rl.config.ErrorMessage,
		Code:      "TOO_MANY_REQUESTS",
		RequestID: c.GetString("request_id"),
		Details: map[string]interface{}{
			"retry_after": int(retryAfter),
			"reset_time":  resetTime.Unix(),
		},
	})
	c.Abort()
}

func (rl *RateLimiter) shouldSkipPath(path string) bool {
	for _, skipPath := range rl.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// DefaultRateLimit limits anonymous traffic per IP.
func DefaultRateLimit(redis *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(RateLimitConfig{
		Redis:        redis,
		Requests:     requests,
		Window:       window,
		KeyPrefix:    "rate_limit",
		ErrorMessage: "Too many requests. Please try again later.",
		SkipPaths:    []string{"/health"},
	}, StrategyIP)
	return limiter.Middleware()
}

// AuthRateLimit protects the authentication endpoints.
func AuthRateLimit(redis *redis.Client) gin.HandlerFunc {
	limiter := NewRateLimiter(RateLimitConfig{
		Redis:        redis,
		Requests:     5,
		Window:       time.Minute,
		KeyPrefix:    "auth_rate_limit",
		ErrorMessage: "Too many authentication attempts. Please try again later.",
	}, StrategyIP)
	return limiter.Middleware()
}

// EmergencyRateLimit keeps a single user from flooding the trigger endpoint
// while still allowing a handful of genuine re-triggers per minute.
func EmergencyRateLimit(redis *redis.Client) gin.HandlerFunc {
	limiter := NewRateLimiter(RateLimitConfig{
		Redis:        redis,
		Requests:     3,
		Window:       time.Minute,
		KeyPrefix:    "emergency_rate_limit",
		ErrorMessage: "Emergency trigger rate limit exceeded.",
	}, StrategyUser)
	return limiter.Middleware()
}

// NotifyRateLimit bounds the manual notification endpoints.
func NotifyRateLimit(redis *redis.Client) gin.HandlerFunc {
	limiter := NewRateLimiter(RateLimitConfig{
		Redis:        redis,
		Requests:     10,
		Window:       time.Minute,
		KeyPrefix:    "notify_rate_limit",
		ErrorMessage: "Notification rate limit exceeded.",
	}, StrategyUser)
	return limiter.Middleware()
}
