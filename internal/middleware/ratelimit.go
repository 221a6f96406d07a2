package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/vta/internal/pkg/errcode"
	"github.com/xxxsen/vta/internal/pkg/response"
)

const defaultSweepInterval = time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu            sync.Mutex
	rps           rate.Limit
	burst         int
	clients       map[string]*clientLimiter
	idle          time.Duration
	sweepInterval time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

// RateLimit applies a token bucket per client. A non positive rps disables it.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = 1
	}
	limiter := &rateLimiter{
		rps:           rate.Limit(rps),
		burst:         burst,
		clients:       make(map[string]*clientLimiter),
		idle:          10 * time.Minute,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
	return limiter.handle
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.rps <= 0 {
		c.Next()
		return
	}
	key := clientKey(c)
	now := l.now()

	l.mu.Lock()
	l.cleanupExpiredLocked(now)
	entry, ok := l.clients[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = now
	allowed := entry.limiter.AllowN(now, 1)
	l.mu.Unlock()

	if !allowed {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("client", key),
			zap.String("path", c.Request.URL.Path),
		)
		response.Abort(c, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		return
	}
	c.Next()
}

func clientKey(c *gin.Context) string {
	if v, ok := c.Get(ContextClientKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return "client:" + id
		}
	}
	return "ip:" + c.ClientIP()
}

func (l *rateLimiter) cleanupExpiredLocked(now time.Time) {
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < l.sweepInterval {
		return
	}
	l.lastSweep = now
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.idle {
			delete(l.clients, key)
		}
	}
}
