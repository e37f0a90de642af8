package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"serenyx/internal/platform/config"
	"serenyx/internal/platform/metrics"
	"serenyx/internal/platform/redis"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/requestcontext"
)

// RateLimiter enforces a fixed-window per-IP request quota backed by Redis.
// A nil Redis client disables limiting entirely, matching deployments that
// run without Redis.
type RateLimiter struct {
	client   *redis.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder *audit.Recorder
	window   time.Duration
	limit    int
}

func NewRateLimiter(client *redis.Client, cfg config.RateLimit, logger *slog.Logger, m *metrics.Metrics, recorder *audit.Recorder) *RateLimiter {
	if client == nil {
		logger.Info("rate limiting disabled, no redis configured")
	}
	return &RateLimiter{
		client:   client,
		logger:   logger,
		metrics:  m,
		recorder: recorder,
		window:   cfg.Window,
		limit:    cfg.MaxRequests,
	}
}

// Limit is the middleware entry point. A Redis failure fails open: the
// request proceeds and the error is logged.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		key := fmt.Sprintf("ratelimit:%s:%d", ip, time.Now().Unix()/int64(rl.window.Seconds()))

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.ErrorContext(ctx, "rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			// First hit in the window sets its expiry.
			if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
				rl.logger.ErrorContext(ctx, "rate limit expire failed", "error", err)
			}
		}

		remaining := int64(rl.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.limit) {
			rl.metrics.RateLimitRejected.Inc()
			rl.recorder.Record(ctx, audit.Event{
				Action:   audit.ActionRateLimitExceeded,
				Resource: r.URL.Path,
				Outcome:  audit.OutcomeDenied,
			})
			retryAfter := int(rl.window.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","error_description":"Too many requests from this IP address. Please try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
