package errors

import (
	"context"
	"time"
)

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	RetryableError func(error) bool
}

// DefaultRetryConfig returns the retry policy for warehouse connections.
// A freshly provisioned endpoint can refuse connections for a short while
// after the cluster reports available, so connection failures retry;
// provisioning and SQL errors never do.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		RetryableError: func(err error) bool {
			if IsRecoverable(err) {
				return true
			}
			switch GetErrorCode(err) {
			case ErrCodeConnectionFailed, ErrCodeConnectionTimeout:
				return true
			}
			return false
		},
	}
}

// Retry executes fn, retrying with exponential backoff while the error is
// retryable under the config.
func Retry(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Wrap(ctx.Err(), ErrCodeTimeout, "Retry cancelled").
					WithContext("attempts", attempt)
			}
			delay = time.Duration(float64(delay) * config.Multiplier)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if config.RetryableError != nil && !config.RetryableError(lastErr) {
			return lastErr
		}
	}

	return Wrap(lastErr, GetErrorCode(lastErr), "Retries exhausted").
		WithContext("attempts", config.MaxRetries+1)
}
