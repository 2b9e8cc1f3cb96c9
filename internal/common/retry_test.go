package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryOptions {
	return RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		wantErr   error
		name      string
		failures  int
		attempts  int
		wantCalls int
		permanent bool
	}{
		{name: "first try", failures: 0, attempts: 3, wantCalls: 1},
		{name: "recovers", failures: 2, attempts: 3, wantCalls: 3},
		{name: "exhausted", failures: 5, attempts: 3, wantCalls: 3, wantErr: ErrMaxRetries},
		{name: "permanent stops", failures: 5, attempts: 3, wantCalls: 1, permanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls > tt.failures {
					return nil
				}
				if tt.permanent {
					return &RetryableError{Err: errors.New("bad request"), Retryable: false}
				}
				return errors.New("transient")
			}, fastRetry(tt.attempts))

			assert.Equal(t, tt.wantCalls, calls)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.permanent:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrMaxRetries)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestWithRetryDefaults(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return ErrRateLimit
	}, RetryOptions{MaxAttempts: 1})

	require.ErrorIs(t, err, ErrMaxRetries)
	assert.Contains(t, err.Error(), "rate limit exceeded")
	assert.Equal(t, 1, calls)
}

func TestWithRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDefaultRetryOptions(t *testing.T) {
	opts := DefaultRetryOptions()
	assert.Equal(t, 3, opts.MaxAttempts)
	assert.Equal(t, time.Second, opts.InitialDelay)
	assert.InDelta(t, 2.0, opts.Multiplier, 1e-9)
}
