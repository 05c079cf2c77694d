// Package ctlog defines the interface used to discover subdomains through a
// Certificate Transparency log query endpoint, and the retryability
// classification of its failures.
package ctlog

import (
	"context"
	"errors"
	"time"

	"certwatch/pkg/domain"
	"certwatch/pkg/serrors"
)

// Client is the abstraction over a CT-log query endpoint. Implementations
// issue one lookup per root domain and return the set of strict subdomains
// observed in issued certificates.
//
//go:generate mockgen -package mockctlog -source=interface.go -destination=mock/mockctlog.go *
type Client interface {
	// Query fetches certificate records for name and returns the normalized
	// set of strict subdomains of name. Failures carry a serrors kind:
	// ErrTimeout, ErrRateLimited and ErrUnavailable are transient;
	// ErrMalformed and ErrUnreachable are permanent.
	Query(ctx context.Context, name string) (domain.SubdomainSet, error)
}

// IsRetryable reports whether err is a transient query failure that is worth
// retrying with backoff. Timeouts, HTTP 429 and HTTP 5xx qualify; malformed
// responses and unreachable hosts do not.
func IsRetryable(err error) bool {
	return errors.Is(err, serrors.ErrTimeout) ||
		errors.Is(err, serrors.ErrRateLimited) ||
		errors.Is(err, serrors.ErrUnavailable)
}

// retryAfterError attaches the wait the upstream requested (Retry-After
// header) to a rate-limit error while keeping the full error chain intact.
type retryAfterError struct {
	err  error
	wait time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

// WithRetryAfter wraps err with the wait the upstream asked for before the
// next request.
func WithRetryAfter(err error, wait time.Duration) error {
	return &retryAfterError{err: err, wait: wait}
}

// RetryAfter extracts the upstream-requested wait from err's chain. It
// reports false when the upstream did not ask for a specific wait.
func RetryAfter(err error) (time.Duration, bool) {
	var ra *retryAfterError
	if errors.As(err, &ra) {
		return ra.wait, true
	}

	return 0, false
}
