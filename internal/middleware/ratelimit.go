package middleware

import (
	"net/http"
	"time"

	"github.com/tomasen/realip"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

func NewLimiter(period time.Duration, max int64) *limiter.Limiter {
	return limiter.New(memory.NewStore(), limiter.Rate{
		Period: period,
		Limit:  max,
	})
}

// RateLimit limits requests per client ip and sets the X-RateLimit-* headers.
func RateLimit(instance *limiter.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithKeyGetter(realip.FromRequest),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("rate limit exceeded", zap.String("ip", realip.FromRequest(r)), zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("rate limit check", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "rate limit check failed")
		}),
	)
	return mw.Handler
}
