package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/config"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewLimiterStore picks the counter store for rate limiting. A configured
// Redis URL shares counters across instances; otherwise counters are per process.
// The returned close func releases the Redis client, if any.
func NewLimiterStore(cfg config.RedisConfig) (limiter.Store, func() error, error) {
	if cfg.URL == "" {
		return memory.NewStore(), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: cfg.KeyPrefix + "ratelimit",
	})
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}
	return store, client.Close, nil
}

// RateLimiter limits requests per client IP
func RateLimiter(cfg config.RateLimitConfig, store limiter.Store, logger *logrus.Logger) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: time.Duration(cfg.WindowSeconds) * time.Second,
		Limit:  int64(cfg.Requests),
	}

	return ginlimiter.NewMiddleware(limiter.New(store, rate),
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			logger.WithFields(logrus.Fields{
				"ip":   c.ClientIP(),
				"path": c.Request.URL.Path,
			}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "Too many requests, slow down",
			})
		}),
		ginlimiter.WithErrorHandler(func(c *gin.Context, err error) {
			logger.WithError(err).Error("Rate limiter store failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "An internal error occurred",
			})
		}),
	)
}
