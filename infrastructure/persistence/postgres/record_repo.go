package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Querier is the subset of a pool the repository needs. *Connection and
// *pgxpool.Pool both satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RecordRepository implements ports.RecordSource for PostgreSQL.
// Rows are converted to domain records and validated before they are
// returned, so a bad row fails the fetch instead of skewing a report.
type RecordRepository struct {
	db Querier
}

// Compile-time interface check.
var _ ports.RecordSource = (*RecordRepository)(nil)

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(db Querier) *RecordRepository {
	return &RecordRepository{db: db}
}

// ─────────────────────────────────────────────────────────────────────────────
// ROW TYPES
// ─────────────────────────────────────────────────────────────────────────────

type questionRow struct {
	SnapshotID int32
	QuestionID int32
	Text       string
	Score      *int32
	IsRelevant bool
	TestID     int32
}

func (r questionRow) toDomain() (domain.Question, error) {
	q := domain.Question{
		SnapshotID: domain.SnapshotID(r.SnapshotID),
		QuestionID: int(r.QuestionID),
		Text:       r.Text,
		IsRelevant: r.IsRelevant,
		TestID:     int(r.TestID),
	}
	if r.Score != nil {
		s := int(*r.Score)
		q.Score = &s
	}
	return q, q.Validate()
}

type zoneRow struct {
	SnapshotID int32
	ZoneID     int32
	Name       string
	IsRelevant bool
}

func (r zoneRow) toDomain() (domain.Zone, error) {
	z := domain.Zone{
		SnapshotID: domain.SnapshotID(r.SnapshotID),
		ZoneID:     int(r.ZoneID),
		Name:       r.Name,
		IsRelevant: r.IsRelevant,
	}
	return z, z.Validate()
}

type membershipRow struct {
	SnapshotID int32
	ZoneID     int32
	QuestionID int32
}

func (r membershipRow) toDomain() (domain.ZoneMembership, error) {
	m := domain.ZoneMembership{
		SnapshotID: domain.SnapshotID(r.SnapshotID),
		ZoneID:     int(r.ZoneID),
		QuestionID: int(r.QuestionID),
	}
	return m, m.Validate()
}

// ─────────────────────────────────────────────────────────────────────────────
// FETCH OPERATIONS
// ─────────────────────────────────────────────────────────────────────────────

// FetchQuestions returns every question of the snapshot ordered by id.
func (r *RecordRepository) FetchQuestions(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Question, error) {
	return fetchAll(ctx, r.db, ports.OpFetchQuestions, snapshotID, queryQuestions,
		func(rows pgx.Rows) (domain.Question, error) {
			var row questionRow
			if err := rows.Scan(&row.SnapshotID, &row.QuestionID, &row.Text, &row.Score, &row.IsRelevant, &row.TestID); err != nil {
				return domain.Question{}, err
			}
			return row.toDomain()
		})
}

// FetchZones returns every zone of the snapshot ordered by id.
func (r *RecordRepository) FetchZones(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Zone, error) {
	return fetchAll(ctx, r.db, ports.OpFetchZones, snapshotID, queryZones,
		func(rows pgx.Rows) (domain.Zone, error) {
			var row zoneRow
			if err := rows.Scan(&row.SnapshotID, &row.ZoneID, &row.Name, &row.IsRelevant); err != nil {
				return domain.Zone{}, err
			}
			return row.toDomain()
		})
}

// FetchZoneMemberships returns every zone-question link of the snapshot.
func (r *RecordRepository) FetchZoneMemberships(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.ZoneMembership, error) {
	return fetchAll(ctx, r.db, ports.OpFetchZoneMemberships, snapshotID, queryZoneMemberships,
		func(rows pgx.Rows) (domain.ZoneMembership, error) {
			var row membershipRow
			if err := rows.Scan(&row.SnapshotID, &row.ZoneID, &row.QuestionID); err != nil {
				return domain.ZoneMembership{}, err
			}
			return row.toDomain()
		})
}

// fetchAll runs a snapshot query and converts every row. Any failure is
// returned as a SourceError; connection-level failures additionally wrap
// ports.ErrSourceUnavailable so the retry middleware picks them up.
func fetchAll[T any](
	ctx context.Context,
	db Querier,
	op string,
	snapshotID domain.SnapshotID,
	query string,
	scan func(pgx.Rows) (T, error),
) ([]T, error) {
	if err := snapshotID.Validate(); err != nil {
		return nil, ports.NewSourceError(op, snapshotID, err)
	}

	rows, err := db.Query(ctx, query, int32(snapshotID))
	if err != nil {
		return nil, ports.NewSourceError(op, snapshotID, classify(err))
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, ports.NewSourceError(op, snapshotID, fmt.Errorf("row %d: %w", len(out), classify(err)))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewSourceError(op, snapshotID, classify(err))
	}
	return out, nil
}

// classify marks transient database failures as ports.ErrSourceUnavailable.
func classify(err error) error {
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
	}
	return err
}
