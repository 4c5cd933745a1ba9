package ports

import (
	"context"

	"github.com/fsscore/zonescore/internal/domain"
)

// RecordSource defines the data-access collaborator that supplies raw
// snapshot records to the report pipeline.
// Implementations should return typed, validated records: the boundary
// between untyped storage rows and domain records belongs to the source.
//
// A snapshot that does not exist is not an error; implementations return
// empty slices and let the aggregation decide whether data is missing.
type RecordSource interface {
	// FetchQuestions returns every question recorded for the snapshot.
	FetchQuestions(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Question, error)

	// FetchZones returns every zone recorded for the snapshot, relevant or not.
	FetchZones(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Zone, error)

	// FetchZoneMemberships returns the zone-question links of the snapshot.
	FetchZoneMemberships(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.ZoneMembership, error)
}

// Fetch operation names used in errors, metrics and spans.
const (
	OpFetchQuestions       = "fetch_questions"
	OpFetchZones           = "fetch_zones"
	OpFetchZoneMemberships = "fetch_zone_memberships"
)
