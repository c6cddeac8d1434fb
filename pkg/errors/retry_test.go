package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(retries int) *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = retries
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		if calls < 3 {
			return ConnectionError("connection refused", fmt.Errorf("dial tcp"))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return New(ErrCodeSchemaDDL, "syntax error")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ErrCodeSchemaDDL, GetErrorCode(err))
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(2), func() error {
		calls++
		return ConnectionError("still refusing", fmt.Errorf("dial tcp"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "Retries exhausted")
	assert.Equal(t, ErrCodeConnectionFailed, GetErrorCode(err))
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetryConfig(5)
	cfg.InitialDelay = time.Minute

	err := Retry(ctx, cfg, func() error {
		return ConnectionError("connection refused", fmt.Errorf("dial tcp"))
	})

	require.Error(t, err)
	assert.Equal(t, ErrCodeTimeout, GetErrorCode(err))
}
