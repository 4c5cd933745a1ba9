package source

import (
	"context"
	"fmt"
	"slices"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// MemorySource is a RecordSource over records held in memory. It is
// immutable after construction and safe for concurrent use. Unknown
// snapshots yield empty slices.
type MemorySource struct {
	snapshots map[domain.SnapshotID]domain.SnapshotRecords
}

// Compile-time interface check.
var _ ports.RecordSource = (*MemorySource)(nil)

// NewMemorySource validates every record and indexes the bundles by
// snapshot. Bundles sharing a snapshot id are merged in order. A record
// whose SnapshotID differs from its bundle is rejected.
func NewMemorySource(bundles ...domain.SnapshotRecords) (*MemorySource, error) {
	snapshots := make(map[domain.SnapshotID]domain.SnapshotRecords, len(bundles))

	for _, b := range bundles {
		if err := validateBundle(b); err != nil {
			return nil, err
		}
		cur := snapshots[b.SnapshotID]
		cur.SnapshotID = b.SnapshotID
		cur.Questions = append(cur.Questions, b.Questions...)
		cur.Zones = append(cur.Zones, b.Zones...)
		cur.Memberships = append(cur.Memberships, b.Memberships...)
		snapshots[b.SnapshotID] = cur
	}

	return &MemorySource{snapshots: snapshots}, nil
}

// SnapshotIDs returns the ids of every loaded snapshot in ascending order.
func (m *MemorySource) SnapshotIDs() []domain.SnapshotID {
	ids := make([]domain.SnapshotID, 0, len(m.snapshots))
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// FetchQuestions returns a copy of the snapshot's questions.
func (m *MemorySource) FetchQuestions(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.NewSourceError(ports.OpFetchQuestions, snapshotID, err)
	}
	return cloneOrEmpty(m.snapshots[snapshotID].Questions), nil
}

// FetchZones returns a copy of the snapshot's zones.
func (m *MemorySource) FetchZones(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Zone, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.NewSourceError(ports.OpFetchZones, snapshotID, err)
	}
	return cloneOrEmpty(m.snapshots[snapshotID].Zones), nil
}

// FetchZoneMemberships returns a copy of the snapshot's zone links.
func (m *MemorySource) FetchZoneMemberships(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.ZoneMembership, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.NewSourceError(ports.OpFetchZoneMemberships, snapshotID, err)
	}
	return cloneOrEmpty(m.snapshots[snapshotID].Memberships), nil
}

func cloneOrEmpty[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// validateBundle checks every record of a bundle against its domain
// constraints and against the bundle's snapshot id.
func validateBundle(b domain.SnapshotRecords) error {
	if err := b.SnapshotID.Validate(); err != nil {
		return err
	}

	for i, q := range b.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("snapshot %d question %d: %w", b.SnapshotID, i, err)
		}
		if q.SnapshotID != b.SnapshotID {
			return mismatch("question", i, q.SnapshotID, b.SnapshotID)
		}
	}
	for i, z := range b.Zones {
		if err := z.Validate(); err != nil {
			return fmt.Errorf("snapshot %d zone %d: %w", b.SnapshotID, i, err)
		}
		if z.SnapshotID != b.SnapshotID {
			return mismatch("zone", i, z.SnapshotID, b.SnapshotID)
		}
	}
	for i, l := range b.Memberships {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("snapshot %d membership %d: %w", b.SnapshotID, i, err)
		}
		if l.SnapshotID != b.SnapshotID {
			return mismatch("zone membership", i, l.SnapshotID, b.SnapshotID)
		}
	}
	return nil
}

func mismatch(entity string, index int, got, want domain.SnapshotID) error {
	verr := domain.NewValidationError(entity)
	verr.AddError(fmt.Sprintf("record %d belongs to snapshot %d, not %d", index, got, want))
	return verr
}
