package monitor

import (
	"context"
	"time"

	"certwatch/pkg/ctlog"
	"certwatch/pkg/domain"
	"certwatch/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Executor runs a single domain scan against the CT log under a bounded
// retry policy: up to Attempts queries, exponential backoff between them
// (BackoffBase, then doubled per retry, no jitter), retrying only transient
// failures. A Retry-After wait announced by the upstream takes precedence
// over the schedule. Queries are paced through a shared rate limiter so concurrent or
// back-to-back scans cannot hammer the endpoint.
type Executor struct {
	client  ctlog.Client
	limiter *rate.Limiter

	attempts    int
	backoffBase time.Duration
}

// NewExecutor constructs an Executor. limiter may be shared with other
// executors; attempts must be >= 1.
func NewExecutor(client ctlog.Client, limiter *rate.Limiter, attempts int, backoffBase time.Duration) *Executor {
	if attempts < 1 {
		attempts = 1
	}

	return &Executor{
		client:      client,
		limiter:     limiter,
		attempts:    attempts,
		backoffBase: backoffBase,
	}
}

// Execute scans one domain and classifies the outcome. A permanent query
// error short-circuits to a fatal failure without consuming further attempts;
// exhausting all attempts on transient errors yields a retryable failure
// carrying the last error. Backoff waits abort promptly when ctx is canceled.
func (e *Executor) Execute(ctx context.Context, name string) domain.ScanResult {
	res := domain.ScanResult{
		ID:        uuid.New(),
		Domain:    name,
		StartedAt: time.Now().UTC(),
	}
	ctx = logger.WithFields(ctx, zap.String("scanID", res.ID.String()), zap.String("domain", name))

	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if attempt > 1 {
			// 2nd attempt waits the base delay, 3rd twice that, and so on.
			// A rate-limited upstream that names its own wait overrides the
			// schedule.
			wait := e.backoffBase << (attempt - 2)
			if ra, ok := ctlog.RetryAfter(lastErr); ok {
				wait = ra
			}
			logger.Info(ctx, "retrying after backoff",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				res.Outcome = domain.ScanOutcomeRetryableFailure
				res.Err = ctx.Err()
				res.FinishedAt = time.Now().UTC()

				return res
			case <-time.After(wait):
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				res.Attempts = attempt - 1
				res.Outcome = domain.ScanOutcomeRetryableFailure
				res.Err = err
				res.FinishedAt = time.Now().UTC()

				return res
			}
		}

		res.Attempts = attempt

		set, err := e.client.Query(ctx, name)
		if err == nil {
			res.Outcome = domain.ScanOutcomeSuccess
			res.Subdomains = set
			res.FinishedAt = time.Now().UTC()
			logger.Info(ctx, "query succeeded",
				zap.Int("attempt", attempt),
				zap.Int("subdomains", set.Len()))

			return res
		}

		lastErr = err
		if !ctlog.IsRetryable(err) {
			res.Outcome = domain.ScanOutcomeFatalFailure
			res.Err = err
			res.FinishedAt = time.Now().UTC()
			logger.Warn(ctx, "query failed permanently", zap.Error(err))

			return res
		}
	}

	res.Outcome = domain.ScanOutcomeRetryableFailure
	res.Err = lastErr
	res.FinishedAt = time.Now().UTC()
	logger.Warn(ctx, "query attempts exhausted",
		zap.Int("attempts", e.attempts),
		zap.Error(lastErr))

	return res
}
