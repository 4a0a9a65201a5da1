package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/metrics"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/redis"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

const rateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimit applies one per-IP sliding window across every route it guards. Redis backs the window so the
// budget is shared across instances; when rdb is nil or Redis fails the
// process-local httprate limiter takes over.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	local := newLocalLimiter(limit, window)

	return func(c *gin.Context) {
		if rdb == nil {
			local(c)
			return
		}

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), "ip:"+c.ClientIP(), limit, window)
		if err != nil {
			logger.Warn("redis rate limit unavailable, using local limiter", zap.Error(err))
			local(c)
			return
		}

		if !allowed {
			rejectRateLimited(c, "redis")
			return
		}

		c.Next()
	}
}

// newLocalLimiter adapts httprate's net/http middleware to gin.
func newLocalLimiter(limit int, window time.Duration) gin.HandlerFunc {
	limiter := httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(http.ResponseWriter, *http.Request) {}),
	)

	return func(c *gin.Context) {
		passed := false
		limiter(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			rejectRateLimited(c, "memory")
			return
		}
		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, backend string) {
	metrics.RateLimited.WithLabelValues(backend).Inc()
	response.Fail(c, http.StatusTooManyRequests, rateLimitMessage)
	c.Abort()
}
