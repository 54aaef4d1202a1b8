package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs every HTTP request with the request ID and, when
// authenticated, the acting user.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID, _ := c.Get("request_id")
		reqID, _ := requestID.(string)

		var userID string
		if uid, exists := c.Get("user_id"); exists {
			if id, ok := uid.(uuid.UUID); ok {
				userID = id.String()
			}
		}

		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", raw),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_id", userID),
			zap.Int("response_size", c.Writer.Size()),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("HTTP Request - Server Error", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("HTTP Request - Client Error", fields...)
		default:
			logger.Info("HTTP Request - Success", fields...)
		}
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// RecoveryMiddleware provides panic recovery with logging
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID, _ := c.Get("request_id")
		reqID, _ := requestID.(string)

		var userID string
		if uid, exists := c.Get("user_id"); exists {
			if id, ok := uid.(uuid.UUID); ok {
				userID = id.String()
			}
		}

		logger.Error("Panic recovered",
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_id", userID),
			zap.Any("error", recovered),
		)

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Internal server error",
			"request_id": reqID,
		})
	})
}

// RateLimitInfo stores per-client request timestamps for rate limiting
type RateLimitInfo struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	maxReqs  int
	window   time.Duration
}

// NewRateLimit creates a new rate limiter
func NewRateLimit(maxRequests int, window time.Duration) *RateLimitInfo {
	return &RateLimitInfo{
		requests: make(map[string][]time.Time),
		maxReqs:  maxRequests,
		window:   window,
	}
}

// RateLimitMiddleware implements basic sliding-window rate limiting per
// client IP.
func RateLimitMiddleware(rateLimiter *RateLimitInfo, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		now := time.Now()

		rateLimiter.mu.Lock()

		var validRequests []time.Time
		for _, reqTime := range rateLimiter.requests[clientIP] {
			if now.Sub(reqTime) < rateLimiter.window {
				validRequests = append(validRequests, reqTime)
			}
		}

		if len(validRequests) >= rateLimiter.maxReqs {
			rateLimiter.requests[clientIP] = validRequests
			rateLimiter.mu.Unlock()

			logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.Int("requests", len(validRequests)),
				zap.Int("max_requests", rateLimiter.maxReqs),
			)

			c.Header("X-RateLimit-Limit", strconv.Itoa(rateLimiter.maxReqs))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(now.Add(rateLimiter.window).Unix(), 10))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
				"code":  "RATE_LIMIT_EXCEEDED",
			})
			c.Abort()
			return
		}

		rateLimiter.requests[clientIP] = append(validRequests, now)
		remaining := rateLimiter.maxReqs - len(rateLimiter.requests[clientIP])
		rateLimiter.mu.Unlock()

		c.Header("X-RateLimit-Limit", strconv.Itoa(rateLimiter.maxReqs))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(now.Add(rateLimiter.window).Unix(), 10))

		c.Next()
	}
}
