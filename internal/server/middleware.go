package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey is where the request id lives in the gin context.
const requestIDKey = "request_id"

// requestID assigns every request a correlation id, honoring one supplied
// by the caller.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	return cors.New(cfg)
}

// rateLimiter is a fixed-window per-client limit. Windows reset every
// minute; exceeding the limit answers 429 with a Retry-After.
type rateLimiter struct {
	mu      sync.Mutex
	perMin  int
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

func newRateLimiter(perMin int) *rateLimiter {
	return &rateLimiter{perMin: perMin, windows: make(map[string]*window)}
}

func (rl *rateLimiter) allow(client string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= time.Minute {
		rl.windows[client] = &window{start: now, count: 1}
		if len(rl.windows) > 10000 {
			rl.sweepLocked(now)
		}
		return true, 0
	}
	if w.count >= rl.perMin {
		return false, time.Minute - now.Sub(w.start)
	}
	w.count++
	return true, 0
}

func (rl *rateLimiter) sweepLocked(now time.Time) {
	for client, w := range rl.windows {
		if now.Sub(w.start) >= time.Minute {
			delete(rl.windows, client)
		}
	}
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.perMin <= 0 {
			c.Next()
			return
		}
		ok, retryIn := rl.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retryIn.Seconds())+1))
			respondError(c, http.StatusTooManyRequests, "ERR_RATE_LIMITED", "rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
