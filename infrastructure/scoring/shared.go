// Package scoring implements the zone score aggregation and the two report
// builders. Every function here is pure: it works on already-fetched records
// and holds no state between calls, so it is safe for concurrent use.
package scoring

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/fsscore/zonescore/internal/domain"
)

// Common errors returned by the report builders.
var (
	// ErrInvalidConfig is returned when a builder configuration fails validation.
	ErrInvalidConfig = errors.New("invalid scoring configuration")
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// foldName applies Unicode case folding for zone name ordering.
// A cases.Caser is not safe for concurrent use, so one is built per call.
func foldName(name string) string {
	return cases.Fold().String(name)
}

// compareZoneNames orders zone scores by case-folded name, then by exact
// name, then by zone id. It is the tie-break basis for every ranking.
func compareZoneNames(a, b domain.ZoneScore) int {
	if c := strings.Compare(foldName(a.ZoneName), foldName(b.ZoneName)); c != 0 {
		return c
	}
	if c := strings.Compare(a.ZoneName, b.ZoneName); c != 0 {
		return c
	}
	switch {
	case a.ZoneID < b.ZoneID:
		return -1
	case a.ZoneID > b.ZoneID:
		return 1
	default:
		return 0
	}
}

// Clock returns the current time. Builders take one so reports carry a
// deterministic timestamp under test.
type Clock func() time.Time

// IDGenerator returns a new unique report identifier.
type IDGenerator func() string

// builderDeps holds the clock and id generator shared by both builders.
type builderDeps struct {
	now   Clock
	newID IDGenerator
}

func defaultDeps() builderDeps {
	return builderDeps{now: time.Now, newID: uuid.NewString}
}

// Option customizes a report builder.
type Option func(*builderDeps)

// WithClock overrides the clock used for report creation timestamps.
func WithClock(c Clock) Option {
	return func(d *builderDeps) {
		if c != nil {
			d.now = c
		}
	}
}

// WithIDGenerator overrides the generator used for report identifiers.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *builderDeps) {
		if g != nil {
			d.newID = g
		}
	}
}

// cloneZones copies a zone slice so reports never alias builder inputs.
// A nil or empty input yields an empty, non-nil slice.
func cloneZones(in []domain.ZoneScore) []domain.ZoneScore {
	out := make([]domain.ZoneScore, len(in))
	copy(out, in)
	return out
}
