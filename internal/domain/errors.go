package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while building reports.
var (
	// ErrInvalidInput indicates that a supplied identifier or record violates
	// its domain constraints.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoData indicates that aggregation produced nothing a report can be
	// built from. It is an expected outcome of valid input.
	ErrNoData = errors.New("no data")
)

// NoDataReason distinguishes the ways a report can come up empty.
type NoDataReason string

const (
	// NoZones means the snapshot has no relevant zones.
	NoZones NoDataReason = "no_zones"

	// NoSnapshots means no snapshot identifiers were supplied.
	NoSnapshots NoDataReason = "no_snapshots"

	// NoSnapshotData means every requested snapshot yielded no zone data.
	NoSnapshotData NoDataReason = "no_snapshot_data"

	// NoScoredZones means no zone carries a score in any contributing snapshot.
	NoScoredZones NoDataReason = "no_scored_zones"
)

// NoDataError reports an empty result together with the reason and the
// snapshots that were examined.
type NoDataError struct {
	// Reason identifies which empty outcome occurred.
	Reason NoDataReason

	// SnapshotIDs lists the snapshots that were examined.
	SnapshotIDs []SnapshotID
}

// Error implements the error interface for NoDataError.
func (e *NoDataError) Error() string {
	switch e.Reason {
	case NoZones:
		return fmt.Sprintf("no data found for snapshot %v", e.SnapshotIDs)
	case NoSnapshots:
		return "no data: at least one snapshot id is required"
	case NoSnapshotData:
		return fmt.Sprintf("no data found for any of the provided snapshots %v", e.SnapshotIDs)
	case NoScoredZones:
		return fmt.Sprintf("no data: no zones with valid scores found across snapshots %v", e.SnapshotIDs)
	default:
		return fmt.Sprintf("no data: %s", e.Reason)
	}
}

// Unwrap lets errors.Is match ErrNoData.
func (e *NoDataError) Unwrap() error { return ErrNoData }

// NewNoDataError creates a NoDataError for the given reason and snapshots.
func NewNoDataError(reason NoDataReason, ids ...SnapshotID) *NoDataError {
	return &NoDataError{Reason: reason, SnapshotIDs: ids}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// IsNoData reports whether err signals an empty result and, if so, why.
func IsNoData(err error) (NoDataReason, bool) {
	var nd *NoDataError
	if errors.As(err, &nd) {
		return nd.Reason, true
	}
	if errors.Is(err, ErrNoData) {
		return "", true
	}
	return "", false
}
