package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

func TestIsRetryableClassifiesByKind(t *testing.T) {
	require.True(t, IsRetryable(errs.New(errs.KindUpsert, "op", errors.New("boom"))))
	require.False(t, IsRetryable(errs.New(errs.KindConnectFatal, "op", errors.New("boom"))))
}

func TestIsRetryableFallsBackToSubstringMatch(t *testing.T) {
	require.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	require.False(t, IsRetryable(errors.New("password authentication failed for user")))
}

func TestIsRetryableNilIsFalse(t *testing.T) {
	require.False(t, IsRetryable(nil))
}

func TestDoSucceedsWithoutRetrying(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrorsThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.KindConnectTransient, "op", errors.New("timeout"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsImmediatelyOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errs.New(errs.KindValidation, "op", errors.New("bad row"))
	err := Do(context.Background(), Config{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return errs.New(errs.KindUpsert, "op", errors.New("still failing"))
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}
