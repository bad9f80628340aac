package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KMohnishM/SIH-25/pkg/metrics"
)

// IPAttemptTracker throttles repeated login attempts per client address.
type IPAttemptTracker struct {
	attempts     map[string]*ipAttemptInfo
	mu           sync.RWMutex
	maxAttempts  int
	cleanupEvery time.Duration
}

type ipAttemptInfo struct {
	Count       int
	LastAttempt time.Time
	Blocked     bool
}

func NewIPAttemptTracker(maxAttempts int) *IPAttemptTracker {
	tracker := &IPAttemptTracker{
		attempts:     make(map[string]*ipAttemptInfo),
		maxAttempts:  maxAttempts,
		cleanupEvery: 5 * time.Minute,
	}

	go tracker.startCleanup()

	return tracker
}

func (t *IPAttemptTracker) startCleanup() {
	ticker := time.NewTicker(t.cleanupEvery)
	defer ticker.Stop()

	for range ticker.C {
		t.cleanOldEntries()
	}
}

func (t *IPAttemptTracker) cleanOldEntries() {
	t.mu.Lock()
	defer t.mu.Unlock()

	expiry := time.Now().Add(-30 * time.Second)
	for ip, info := range t.attempts {
		if info.LastAttempt.Before(expiry) {
			delete(t.attempts, ip)
		}
	}
}

func (t *IPAttemptTracker) RecordAttempt(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, exists := t.attempts[ip]
	if !exists {
		info = &ipAttemptInfo{}
		t.attempts[ip] = info
	}

	info.Count++
	info.LastAttempt = time.Now()

	if info.Count > t.maxAttempts {
		info.Blocked = true
	}
}

// Reset clears the failure history for an address after a successful login.
func (t *IPAttemptTracker) Reset(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.attempts, ip)
}

func (t *IPAttemptTracker) IsBlocked(ip string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, exists := t.attempts[ip]
	if !exists {
		return false
	}
	return info.Blocked
}

type RequestMiddleware struct {
	logger         *zap.Logger
	metrics        *metrics.Collector
	attemptTracker *IPAttemptTracker
}

func NewRequestMiddleware(logger *zap.Logger, collector *metrics.Collector, maxLoginAttempts int) *RequestMiddleware {
	return &RequestMiddleware{
		logger:         logger,
		metrics:        collector,
		attemptTracker: NewIPAttemptTracker(maxLoginAttempts),
	}
}

// ProcessRequest tags every request with an id, logs it and feeds the
// request counters.
func (rm *RequestMiddleware) ProcessRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rm.metrics.ObserveRequest(c.Request.Method, route, fmt.Sprintf("%d", c.Writer.Status()), duration.Seconds())
		rm.logger.Info("request completed",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}

// LoginThrottle rejects clients hammering the login endpoint. Only failed
// attempts count against the limit; a successful login clears the history.
func (rm *RequestMiddleware) LoginThrottle() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if rm.attemptTracker.IsBlocked(clientIP) {
			rm.logger.Warn("login throttled",
				zap.String("client_ip", clientIP))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts"})
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			rm.attemptTracker.Reset(clientIP)
		} else {
			rm.attemptTracker.RecordAttempt(clientIP)
		}
	}
}

func (rm *RequestMiddleware) RecoverPanic() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := c.GetString("request_id")
				rm.logger.Error("panic recovered",
					zap.String("request_id", requestID),
					zap.Any("error", err),
					zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
