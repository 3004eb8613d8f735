package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

// NewRateLimiter throttles per caller. Authenticated requests are keyed by
// user so one user can't starve another behind a shared NAT, everything else
// falls back to the client IP.
func NewRateLimiter(config RateLimiterConfig) gin.HandlerFunc {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	go func() {
		for {
			time.Sleep(config.CleanupInterval)

			mu.Lock()
			for key, cl := range clients {
				if time.Since(cl.lastSeen) > config.TTL {
					delete(clients, key)
				}
			}
			mu.Unlock()
		}
	}()

	lookup := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		cl, ok := clients[key]
		if !ok {
			cl = &client{limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)}
			clients[key] = cl
		}

		cl.lastSeen = time.Now()
		return cl.limiter
	}

	return func(c *gin.Context) {
		key := c.GetString("userID")
		if key == "" {
			key = c.ClientIP()
		}

		if !lookup(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}

		c.Next()
	}
}
