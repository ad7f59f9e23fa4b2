package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yyup/kindergarten-service/internal/metrics"
	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
)

// MiddlewareConfig tunes the engine-wide middleware.
type MiddlewareConfig struct {
	RequestTimeout time.Duration
	// RateLimitRPS of zero disables rate limiting.
	RateLimitRPS   int
	RateLimitBurst int
}

// SetupMiddleware sets up common middleware for the Gin router
func SetupMiddleware(router *gin.Engine, logger utils.Logger, cfg MiddlewareConfig) {
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware())
	router.Use(RecoveryMiddleware(logger))

	// Context logger middleware (adds logger with request_id to context)
	router.Use(utils.ContextLogger(logger))
	router.Use(utils.LoggerMiddleware(logger))

	router.Use(metrics.Middleware())
	router.Use(SecurityMiddleware())

	if cfg.RequestTimeout > 0 {
		router.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	if cfg.RateLimitRPS > 0 {
		router.Use(NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger).Middleware())
	}
}

// RequestIDMiddleware generates a unique request ID for each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// CORSMiddleware reflects any origin; browsers send credentials with the bearer token.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", tenant.HeaderName},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// RecoveryMiddleware turns a panic into the 500 envelope.
func RecoveryMiddleware(logger utils.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.GetLogger(c, logger).Error("Panic recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path)
		response.Abort(c, http.StatusInternalServerError, response.MsgInternalError, response.CodeInternalError)
	})
}

// SecurityMiddleware adds security headers
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// TimeoutMiddleware bounds the request context. Handlers and repositories observe it through ctx.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   utils.Logger
}

// maxTrackedClients bounds the limiter map; it is reset when exceeded.
const maxTrackedClients = 10000

func NewRateLimiter(requestsPerSecond, burst int, logger utils.Logger) *RateLimiter {
	if burst < 1 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.limiter(ip).Allow() {
			utils.GetLogger(c, rl.logger).Warn("Rate limit exceeded",
				"ip", ip,
				"method", c.Request.Method,
				"path", c.Request.URL.Path)
			response.Abort(c, http.StatusTooManyRequests, response.MsgTooManyRequest, response.CodeRateLimited)
			return
		}
		c.Next()
	}
}
