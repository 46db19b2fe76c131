package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-book-tracker/internal/interface/middleware"
)

// Guard carries the shared access middleware and the rate-limit settings modules build on.
type Guard struct {
	Auth      gin.HandlerFunc
	GuestOnly gin.HandlerFunc
	Redis     *redis.Client
	Max       int
	Window    time.Duration
	Allow     middleware.AllowFunc
}

// PerIP limits by client IP and route at the configured rate.
func (g Guard) PerIP() gin.HandlerFunc {
	return middleware.RateLimit(g.Redis, g.Max, g.Window, middleware.KeyByIPAndPath(), g.Allow)
}

// PerUser limits authenticated traffic at n requests per window.
func (g Guard) PerUser(n int) gin.HandlerFunc {
	return middleware.RateLimit(g.Redis, n, g.Window, middleware.KeyByUserID(), g.Allow)
}
