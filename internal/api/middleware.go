package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hlexec/internal/models"
)

// RequestIDMiddleware generates or propagates request IDs for tracing
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggerMiddleware logs one structured line per request
func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		} else if status >= http.StatusBadRequest {
			event = logger.Warn()
		}

		event.
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// AuthMiddleware validates API key authentication
func AuthMiddleware(apiKey string) gin.HandlerFunc {
	skipPaths := map[string]bool{
		"/health":  true,
		"/ready":   true,
		"/metrics": true,
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewErrorResponse(
				"UNAUTHORIZED",
				"Missing API key",
				c.GetString("request_id"),
			))
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewErrorResponse(
				"UNAUTHORIZED",
				"Invalid API key",
				c.GetString("request_id"),
			))
			return
		}

		c.Next()
	}
}

// rateLimiter holds one token bucket per client IP
type rateLimiter struct {
	clients   map[string]*clientLimiter
	mu        sync.Mutex
	rps       int
	idle      time.Duration
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (rl *rateLimiter) get(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// sweep idle clients at most once per idle interval
	if now.Sub(rl.lastSweep) > rl.idle {
		for key, client := range rl.clients {
			if now.Sub(client.lastSeen) > rl.idle {
				delete(rl.clients, key)
			}
		}
		rl.lastSweep = now
	}

	client, ok := rl.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.rps)}
		rl.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter
}

// RateLimitMiddleware allows requestsPerSecond per client IP with an equal burst
func RateLimitMiddleware(requestsPerSecond int) gin.HandlerFunc {
	limiter := &rateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     requestsPerSecond,
		idle:    time.Minute,
	}

	return func(c *gin.Context) {
		now := time.Now()
		l := limiter.get(getClientIP(c), now)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", requestsPerSecond))
		if !l.AllowN(now, 1) {
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewErrorResponse(
				"RATE_LIMITED",
				"Too many requests",
				c.GetString("request_id"),
			))
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", int(l.TokensAt(now))))
		c.Next()
	}
}

// ErrorMiddleware handles panic recovery and error responses
func ErrorMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error().
					Interface("panic", err).
					Str("request_id", c.GetString("request_id")).
					Str("path", c.Request.URL.Path).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewErrorResponse(
					"INTERNAL_ERROR",
					"An internal server error occurred",
					c.GetString("request_id"),
				))
			}
		}()
		c.Next()
	}
}

// CORSConfig defines CORS middleware configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware(config CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		originAllowed := false
		allowedOrigin := ""
		for _, allowed := range config.AllowOrigins {
			if allowed == "*" || allowed == origin {
				originAllowed = true
				allowedOrigin = allowed
				break
			}
		}

		if c.Request.Method == http.MethodOptions {
			if originAllowed {
				c.Header("Access-Control-Allow-Origin", allowedOrigin)
				c.Header("Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", "))
				c.Header("Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", "))
				if config.AllowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				if config.MaxAge > 0 {
					c.Header("Access-Control-Max-Age", fmt.Sprintf("%d", config.MaxAge))
				}
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if origin != "" && !originAllowed {
			c.AbortWithStatusJSON(http.StatusForbidden, models.NewErrorResponse(
				"CORS_ERROR",
				"Origin not allowed",
				c.GetString("request_id"),
			))
			return
		}

		if originAllowed {
			c.Header("Access-Control-Allow-Origin", allowedOrigin)
			if config.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			if len(config.ExposeHeaders) > 0 {
				c.Header("Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", "))
			}
		}

		c.Next()
	}
}

// ValidationMiddleware requires a JSON content type on requests with a body
func ValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if !strings.Contains(c.GetHeader("Content-Type"), "application/json") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, models.NewErrorResponse(
					"INVALID_CONTENT_TYPE",
					"Content-Type must be application/json",
					c.GetString("request_id"),
				))
				return
			}
		}

		c.Next()
	}
}

func getClientIP(c *gin.Context) string {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
