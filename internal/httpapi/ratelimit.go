package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"office-forwarding/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LimitConfig sizes the per-client token buckets in front of the webhooks.
type LimitConfig struct {
	PerSecond float64
	Burst     int

	// IdleTTL drops the bucket of a client that has been quiet this long.
	IdleTTL time.Duration
}

func DefaultLimitConfig() LimitConfig {
	return LimitConfig{PerSecond: 20, Burst: 40, IdleTTL: 10 * time.Minute}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// ClientLimiter keeps one token bucket per client address. A background
// sweeper evicts idle buckets until Close is called.
type ClientLimiter struct {
	cfg LimitConfig
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	done      chan struct{}
	closeOnce sync.Once
}

func NewClientLimiter(cfg LimitConfig) *ClientLimiter {
	l := &ClientLimiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}

	every := cfg.IdleTTL / 2
	if every <= 0 {
		every = time.Minute
	}
	go l.sweepEvery(every)
	return l
}

// Allow spends one token from client's bucket.
func (l *ClientLimiter) Allow(client string) bool {
	l.mu.Lock()
	b := l.buckets[client]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.cfg.PerSecond), l.cfg.Burst)}
		l.buckets[client] = b
	}
	b.seen = l.now()
	l.mu.Unlock()

	return b.lim.Allow()
}

func (l *ClientLimiter) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

func (l *ClientLimiter) sweepEvery(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			if n := l.sweep(); n > 0 {
				slog.Debug("webhook limiter swept idle clients", "removed", n)
			}
		}
	}
}

// sweep evicts buckets idle for longer than IdleTTL and reports how many.
func (l *ClientLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleTTL)
	n := 0
	for client, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, client)
			n++
		}
	}
	return n
}

// Limit spends a token per request, keyed on gin's ClientIP (configure the
// engine's trusted proxies, or X-Forwarded-For is taken from anyone).
//
// An over-budget request is answered by refuse, which must write the
// response. Voice stages pass a TwiML refusal; a nil refuse answers 429.
func Limit(l *ClientLimiter, refuse gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if l.Allow(client) {
			c.Next()
			return
		}

		logger.FromGin(c).Warn("webhook rate limited", "client_ip", client, "path", c.Request.URL.Path)
		c.Header("Retry-After", "1")
		if refuse == nil {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		refuse(c)
		c.Abort()
	}
}
