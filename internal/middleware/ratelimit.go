package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/yukikurage/hierarchy-api/internal/config"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
)

const rateLimitPrefix = "hierarchy_limiter"

// NewRateLimitStore returns the limiter store selected by RATE_LIMIT_STORAGE.
// A redis store that cannot be created falls back to memory.
func NewRateLimitStore(opts config.RateLimitOptions, client *redis.Client, log *logrus.Logger) limiter.Store {
	if opts.Storage == "redis" && client != nil {
		store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err == nil {
			return store
		}
		log.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
	}
	return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
}

// RateLimit limits requests per client IP using a formatted rate such as "20-M".
func RateLimit(formatted string, store limiter.Store) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", formatted, err)
	}

	return mgin.NewMiddleware(
		limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			apierrors.TooManyRequests(c)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			apierrors.InternalError(c, "Rate limiter unavailable")
		}),
	), nil
}
