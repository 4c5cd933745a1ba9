package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSourceError tests error creation, message formatting, and retryable
// logic of SourceError.
func TestSourceError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := NewSourceError(OpFetchZones, 7, ErrSourceUnavailable)

		assert.Equal(t, "source error: operation=fetch_zones, snapshot=7, err=record source unavailable", err.Error())
		assert.Equal(t, OpFetchZones, err.Operation)
		assert.EqualValues(t, 7, err.SnapshotID)
		assert.True(t, errors.Is(err, ErrSourceUnavailable))
	})

	t.Run("retryable errors", func(t *testing.T) {
		retryableErrors := []error{
			ErrRateLimited,
			ErrSourceUnavailable,
			ErrTimeout,
			fmt.Errorf("dial: %w", ErrSourceUnavailable),
		}

		for _, baseErr := range retryableErrors {
			err := NewSourceError(OpFetchQuestions, 1, baseErr)
			assert.True(t, err.IsRetryable(), "%v should be retryable", baseErr)
			assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", err)))
		}

		nonRetryableErrors := []error{
			errors.New("syntax error at or near SELECT"),
			ErrConfigNotFound,
		}

		for _, baseErr := range nonRetryableErrors {
			err := NewSourceError(OpFetchQuestions, 1, baseErr)
			assert.False(t, err.IsRetryable(), "%v should not be retryable", baseErr)
		}
	})

	t.Run("bare sentinels", func(t *testing.T) {
		assert.True(t, IsRetryable(ErrTimeout))
		assert.False(t, IsRetryable(errors.New("other")))
		assert.False(t, IsRetryable(nil))
	})
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("source.postgres.host", ErrConfigNotFound)

	assert.Equal(t, "config error: key=source.postgres.host, err=configuration not found", err.Error())
	assert.Equal(t, "source.postgres.host", err.ConfigKey)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}
