package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"suki-be/internal/apperror"
	"suki-be/internal/auth"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Rate limit tiers
const (
	// login and other credential checks
	limitStrict = rate.Limit(2)
	burstStrict = 5

	limitGeneral = rate.Limit(10)
	burstGeneral = 20
)

const (
	tierStrict  = "strict"
	tierGeneral = "general"

	visitorTTL      = 3 * time.Minute
	cleanupInterval = time.Minute
)

var errTooManyRequests = apperror.RateLimited("too many requests, please slow down")

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per caller and tier.
type Limiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	strictPaths []string
	now         func() time.Time
}

// NewLimiter applies the strict tier to routes under any of strictPaths.
func NewLimiter(strictPaths ...string) *Limiter {
	return &Limiter{
		visitors:    make(map[string]*visitor),
		strictPaths: strictPaths,
		now:         time.Now,
	}
}

// Run removes idle visitors until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, key)
		}
	}
}

func (l *Limiter) get(key string, r rate.Limit, b int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r, b)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

func (l *Limiter) tier(path string) (rate.Limit, int, string) {
	for _, p := range l.strictPaths {
		if strings.HasPrefix(path, p) {
			return limitStrict, burstStrict, tierStrict
		}
	}
	return limitGeneral, burstGeneral, tierGeneral
}

func identity(c *gin.Context) string {
	if p, ok := auth.FromContext(c.Request.Context()); ok {
		return "user:" + p.Subject
	}
	if deviceID := c.GetHeader("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}
	return "ip:" + c.ClientIP()
}

// RateLimit rejects callers that exceed their tier with 429.
func RateLimit(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, burst, tier := l.tier(c.Request.URL.Path)
		key := identity(c) + ":" + tier

		if !l.get(key, limit, burst).Allow() {
			c.Header("Retry-After", "1")
			Abort(c, errTooManyRequests)
			return
		}
		c.Next()
	}
}
