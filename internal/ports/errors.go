package ports

import (
	"errors"
	"fmt"

	"github.com/fsscore/zonescore/internal/domain"
)

// Common infrastructure errors that can occur while fetching records.
var (
	// ErrSourceUnavailable indicates that the record store cannot be reached.
	ErrSourceUnavailable = errors.New("record source unavailable")

	// ErrRateLimited indicates that the caller exceeded the fetch rate.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that a fetch timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// SourceError represents a failed fetch against a RecordSource.
type SourceError struct {
	// Operation is the fetch that failed (see the Op constants).
	Operation string

	// SnapshotID is the snapshot whose records were being fetched.
	SnapshotID domain.SnapshotID

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for SourceError.
func (e *SourceError) Error() string {
	return fmt.Sprintf("source error: operation=%s, snapshot=%d, err=%v", e.Operation, e.SnapshotID, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the fetch can be
// retried. Invalid records are never retryable.
func (e *SourceError) IsRetryable() bool {
	return errors.Is(e.Err, ErrSourceUnavailable) ||
		errors.Is(e.Err, ErrTimeout) ||
		errors.Is(e.Err, ErrRateLimited)
}

// NewSourceError creates a new SourceError with the given details.
func NewSourceError(operation string, snapshotID domain.SnapshotID, err error) *SourceError {
	return &SourceError{
		Operation:  operation,
		SnapshotID: snapshotID,
		Err:        err,
	}
}

// IsRetryable reports whether err, or any SourceError it wraps, is
// retryable.
func IsRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.IsRetryable()
	}
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
