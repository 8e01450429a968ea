package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/internal/domain/dto"
)

// client represents a rate-limited client with request count and window start.
type client struct {
	windowStart time.Time
	count       int
}

// In-memory fixed-window counters, one per client IP.
var (
	clients         = make(map[string]*client)
	window          = time.Minute
	limit           = 60
	rateLimiterLock sync.Mutex
)

// SetRateLimit changes the number of requests allowed per client each minute.
// Non-positive values leave the current limit in place.
func SetRateLimit(perMinute int) {
	if perMinute <= 0 {
		return
	}
	rateLimiterLock.Lock()
	defer rateLimiterLock.Unlock()
	limit = perMinute
}

// RateLimiter limits the number of requests per client IP.
//
// Behavior:
//   - Allows up to `limit` requests per `window` (default: 60 requests per 1 minute).
//   - If the limit is exceeded, returns HTTP 429 Too Many Requests with a Retry-After header.
//   - Stale entries are swept whenever a request arrives after a full window.
func RateLimiter() gin.HandlerFunc {
	var lastSweep time.Time
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		rateLimiterLock.Lock()
		if now.Sub(lastSweep) > window {
			for k, cl := range clients {
				if now.Sub(cl.windowStart) > window {
					delete(clients, k)
				}
			}
			lastSweep = now
		}
		cl, ok := clients[ip]
		if !ok || now.Sub(cl.windowStart) > window {
			cl = &client{windowStart: now}
			clients[ip] = cl
		}
		cl.count++
		exceeded := cl.count > limit
		retryAfter := window - now.Sub(cl.windowStart)
		rateLimiterLock.Unlock()

		if exceeded {
			c.Header("Retry-After", retryAfterSeconds(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse("rate limit exceeded", nil))
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
