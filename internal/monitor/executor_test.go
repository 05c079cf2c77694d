package monitor_test

import (
	"context"
	"testing"
	"time"

	"certwatch/internal/monitor"
	"certwatch/pkg/ctlog"
	mockctlog "certwatch/pkg/ctlog/mock"
	"certwatch/pkg/domain"
	"certwatch/pkg/serrors"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestExecutorSuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mockctlog.NewMockClient(ctrl)

	set := domain.NewSubdomainSet("api.example.com", "dev.example.com")
	client.EXPECT().Query(gomock.Any(), "example.com").Return(set, nil)

	exec := monitor.NewExecutor(client, nil, 3, time.Millisecond)
	res := exec.Execute(context.Background(), "example.com")

	require.Equal(t, domain.ScanOutcomeSuccess, res.Outcome)
	require.Equal(t, 1, res.Attempts)
	require.NoError(t, res.Err)
	require.True(t, set.Equal(res.Subdomains))
	require.Equal(t, "example.com", res.Domain)
	require.NotZero(t, res.ID)
	require.False(t, res.FinishedAt.Before(res.StartedAt))
}

func TestExecutorRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mockctlog.NewMockClient(ctrl)

	set := domain.NewSubdomainSet("api.example.com")
	gomock.InOrder(
		client.EXPECT().Query(gomock.Any(), "example.com").
			Return(nil, serrors.With(serrors.ErrUnavailable, "upstream returned 503")),
		client.EXPECT().Query(gomock.Any(), "example.com").Return(set, nil),
	)

	exec := monitor.NewExecutor(client, nil, 3, time.Millisecond)
	res := exec.Execute(context.Background(), "example.com")

	require.Equal(t, domain.ScanOutcomeSuccess, res.Outcome)
	require.Equal(t, 2, res.Attempts)
	require.True(t, set.Equal(res.Subdomains))
}

func TestExecutorExhaustsAttempts(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mockctlog.NewMockClient(ctrl)

	queryErr := serrors.With(serrors.ErrRateLimited, "upstream returned 429")
	client.EXPECT().Query(gomock.Any(), "example.com").Return(nil, queryErr).Times(3)

	exec := monitor.NewExecutor(client, nil, 3, time.Millisecond)
	res := exec.Execute(context.Background(), "example.com")

	require.Equal(t, domain.ScanOutcomeRetryableFailure, res.Outcome)
	require.Equal(t, 3, res.Attempts)
	require.ErrorIs(t, res.Err, serrors.ErrRateLimited)
	require.True(t, ctlog.IsRetryable(res.Err))
}

func TestExecutorFatalErrorShortCircuits(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mockctlog.NewMockClient(ctrl)

	client.EXPECT().Query(gomock.Any(), "example.com").
		Return(nil, serrors.With(serrors.ErrMalformed, "could not decode response"))

	exec := monitor.NewExecutor(client, nil, 3, time.Millisecond)
	res := exec.Execute(context.Background(), "example.com")

	require.Equal(t, domain.ScanOutcomeFatalFailure, res.Outcome)
	require.Equal(t, 1, res.Attempts)
	require.ErrorIs(t, res.Err, serrors.ErrMalformed)
}

func TestExecutorCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mockctlog.NewMockClient(ctrl)

	client.EXPECT().Query(gomock.Any(), "example.com").
		Return(nil, serrors.With(serrors.ErrTimeout, "request timed out"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The backoff is long enough that a live context would block the test.
	exec := monitor.NewExecutor(client, nil, 3, time.Hour)
	res := exec.Execute(ctx, "example.com")

	require.Equal(t, domain.ScanOutcomeRetryableFailure, res.Outcome)
	require.ErrorIs(t, res.Err, context.Canceled)
}

func TestExecutorHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mockctlog.NewMockClient(ctrl)

	set := domain.NewSubdomainSet("api.example.com")
	gomock.InOrder(
		client.EXPECT().Query(gomock.Any(), "example.com").
			Return(nil, ctlog.WithRetryAfter(
				serrors.With(serrors.ErrRateLimited, "upstream returned 429"),
				10*time.Millisecond)),
		client.EXPECT().Query(gomock.Any(), "example.com").Return(set, nil),
	)

	// The schedule alone would wait an hour; the upstream's requested wait
	// must take precedence or the deadline below aborts the retry.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	exec := monitor.NewExecutor(client, nil, 3, time.Hour)
	res := exec.Execute(ctx, "example.com")

	require.Equal(t, domain.ScanOutcomeSuccess, res.Outcome)
	require.Equal(t, 2, res.Attempts)
}
