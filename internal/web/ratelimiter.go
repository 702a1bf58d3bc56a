package web

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// pageLimiter throttles page renders with a token bucket. Static assets and
// the favicon are answered before it and never consume tokens.
type pageLimiter struct {
	bucket *rate.Limiter
}

// newPageLimiter returns nil when either the rate or the burst is zero, which
// disables limiting.
func newPageLimiter(ratePerSecond float64, burst int) *pageLimiter {
	if ratePerSecond <= 0 || burst <= 0 {
		return nil
	}
	return &pageLimiter{bucket: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// take consumes a token if one is available now. Otherwise nothing is
// consumed and the wait until the next token is returned.
func (l *pageLimiter) take() (time.Duration, bool) {
	r := l.bucket.Reserve()
	if !r.OK() {
		return time.Second, false
	}
	delay := r.Delay()
	if delay <= 0 {
		return 0, true
	}
	r.Cancel()
	return delay, false
}

func retryAfterSeconds(wait time.Duration) string {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func rateLimitMiddleware(limiter *pageLimiter, logger *zap.Logger, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wait, ok := limiter.take()
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		logger.Debug("page render throttled",
			zap.Duration("retry_after", wait),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
		w.Header().Set("Retry-After", retryAfterSeconds(wait))
		writeError(w, http.StatusTooManyRequests)
	})
}
