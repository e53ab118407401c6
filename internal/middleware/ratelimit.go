package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// tokenBucketRateLimiter implements RateLimiter using token bucket algorithm.
type tokenBucketRateLimiter struct {
	limiters       map[string]*rate.Limiter
	mu             sync.Mutex
	requestsPerSec rate.Limit
	burstSize      int
	stopCleanup    chan struct{}
	stopOnce       sync.Once
	logger         observability.Logger
}

// TokenBucketRateLimiter is a per-key token bucket limiter. Stop ends its
// background cleanup.
type TokenBucketRateLimiter interface {
	RateLimiter
	Stop()
}

// NewTokenBucketRateLimiter creates a per-key token bucket limiter allowing
// requestsPerSec sustained and burstSize peak requests. Idle keys are dropped
// every cleanupInterval; a non-positive interval disables the loop.
func NewTokenBucketRateLimiter(
	requestsPerSec float64,
	burstSize int,
	cleanupInterval time.Duration,
	logger observability.Logger,
) TokenBucketRateLimiter {
	rl := &tokenBucketRateLimiter{
		limiters:       make(map[string]*rate.Limiter),
		requestsPerSec: rate.Limit(requestsPerSec),
		burstSize:      burstSize,
		stopCleanup:    make(chan struct{}),
		logger:         logger,
	}

	if cleanupInterval > 0 {
		go rl.cleanupLoop(cleanupInterval)
	}

	return rl
}

func (rl *tokenBucketRateLimiter) Allow(_ context.Context, key string) bool {
	return rl.getLimiter(key).Allow()
}

func (rl *tokenBucketRateLimiter) Reset(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.limiters, key)
	return nil
}

// Stats reports the bucket state for key without consuming a token.
func (rl *tokenBucketRateLimiter) Stats(key string) RateLimitStats {
	tokens := rl.getLimiter(key).Tokens()

	remaining := max(int(math.Floor(tokens)), 0)

	var retryAfter time.Duration
	if tokens < 1 && rl.requestsPerSec > 0 {
		retryAfter = time.Duration((1 - tokens) / float64(rl.requestsPerSec) * float64(time.Second))
	}

	var untilFull time.Duration
	if rl.requestsPerSec > 0 {
		untilFull = time.Duration((float64(rl.burstSize) - tokens) / float64(rl.requestsPerSec) * float64(time.Second))
	}

	return RateLimitStats{
		Limit:      rl.burstSize,
		Remaining:  remaining,
		ResetTime:  time.Now().Add(max(untilFull, 0)),
		RetryAfter: retryAfter,
	}
}

// Cleanup drops limiters whose bucket has refilled, i.e. keys that have been
// idle long enough to be indistinguishable from new ones.
func (rl *tokenBucketRateLimiter) Cleanup(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, limiter := range rl.limiters {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limiter.Tokens() >= float64(rl.burstSize) {
			delete(rl.limiters, key)
		}
	}

	rl.logger.Debug(ctx, "Rate limiter cleanup completed",
		observability.Int("active_limiters", len(rl.limiters)),
	)
	return nil
}

func (rl *tokenBucketRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *tokenBucketRateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.requestsPerSec, rl.burstSize)
		rl.limiters[key] = limiter
	}

	return limiter
}

func (rl *tokenBucketRateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = rl.Cleanup(context.Background())
		case <-rl.stopCleanup:
			return
		}
	}
}

type rateLimitHandler struct {
	limiter RateLimiter
	keyFunc KeyFunc
	logger  observability.Logger
	metrics observability.MetricsCollector
}

type rateLimitBody struct {
	Error      string `json:"error"`
	Status     int    `json:"status"`
	RequestID  string `json:"request_id,omitempty"`
	RetryAfter int64  `json:"retry_after"`
	Timestamp  string `json:"timestamp"`
}

// NewRateLimit returns a handler that answers 429 once the client's bucket
// is empty. A nil keyFunc keys requests by the connection's remote address.
func NewRateLimit(
	limiter RateLimiter,
	keyFunc KeyFunc,
	logger observability.Logger,
	metrics observability.MetricsCollector,
) pipeline.Handler {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return &rateLimitHandler{
		limiter: limiter,
		keyFunc: keyFunc,
		logger:  logger,
		metrics: metrics,
	}
}

func (m *rateLimitHandler) Name() string {
	return "ratelimit"
}

func (m *rateLimitHandler) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	key := m.keyFunc(req)
	if m.limiter.Allow(req.Context(), key) {
		return next.Run(req)
	}

	stats := m.limiter.Stats(key)
	requestID := GetRequestID(req)

	m.logger.Warn(req.Context(), "Rate limit exceeded",
		observability.RequestID(requestID),
		observability.String("key", key),
		observability.Method(req.Method()),
		observability.Path(req.Path()),
	)
	m.metrics.RecordRateLimitHit(key)

	retryAfter := int64(math.Ceil(stats.RetryAfter.Seconds()))
	res, err := envelope.JSON(http.StatusTooManyRequests, rateLimitBody{
		Error:      "Rate limit exceeded",
		Status:     http.StatusTooManyRequests,
		RequestID:  requestID,
		RetryAfter: retryAfter,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return req.Fail(err)
	}

	res.WithHeader("X-RateLimit-Limit", strconv.Itoa(stats.Limit)).
		WithHeader("X-RateLimit-Remaining", strconv.Itoa(stats.Remaining)).
		WithHeader("X-RateLimit-Reset", strconv.FormatInt(stats.ResetTime.Unix(), 10)).
		WithHeader("Retry-After", strconv.FormatInt(retryAfter, 10))

	req.SetResponse(res)
	return req, nil
}
