package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/tenantly/authweb/pkg/metrics"
	"golang.org/x/time/rate"
)

// limiterStore is a per-key set of token buckets.
type limiterStore struct {
	m     sync.Map // map[string]*rate.Limiter
	rps   float64
	burst int
}

// get returns (and lazily creates) the limiter for key
func (s *limiterStore) get(key string) *rate.Limiter {
	if v, ok := s.m.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := s.m.LoadOrStore(key, rate.NewLimiter(rate.Limit(s.rps), s.burst))
	return v.(*rate.Limiter)
}

// limitKey prefers the signed-in subject (NAT friendly), otherwise the client IP.
func limitKey(c *gin.Context) string {
	if s := SessionFrom(c); s != nil && s.Subject.ID != "" {
		return "sub:" + s.Subject.ID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func rejectTooMany(c *gin.Context, retryAfter string) {
	c.Header("Retry-After", retryAfter)
	msg := "Too many attempts. Please wait a moment and try again."
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.String(http.StatusTooManyRequests, msg)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": msg})
}

// RateLimitMiddleware returns a Gin middleware enforcing a token bucket per key
// (see limitKey). rps = allowed events per second, burst = bucket size.
// Each call owns its buckets, so routes limited separately do not share budget.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := &limiterStore{rps: rps, burst: burst}
	return func(c *gin.Context) {
		if !store.get(limitKey(c)).Allow() {
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			rejectTooMany(c, "1")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
