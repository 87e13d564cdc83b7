package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/guttosm/nsepulse/internal/logger"
)

// RequestLogger is a Gin middleware that logs one structured line per request:
// method, path, status, latency and request id. 5xx responses log at error
// level, 4xx at warn.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		log := logger.Component("http")
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		ev.Str("request_id", requestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

// Default per-client budget: 1 request per second with bursts of 60.
const (
	defaultRate  = rate.Limit(1)
	defaultBurst = 60
)

// ipLimiters hands out one token bucket per client IP.
type ipLimiters struct {
	mu      sync.Mutex
	r       rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		b = rate.NewLimiter(l.r, l.burst)
		l.buckets[ip] = b
	}
	return b
}

// RateLimiter limits each client IP with the default budget.
func RateLimiter() gin.HandlerFunc {
	return RateLimit(defaultRate, defaultBurst)
}

// RateLimit returns a middleware allowing r requests per second per client IP
// with the given burst. Requests over budget get 429 Too Many Requests.
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	limiters := &ipLimiters{r: r, burst: burst, buckets: make(map[string]*rate.Limiter)}
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
