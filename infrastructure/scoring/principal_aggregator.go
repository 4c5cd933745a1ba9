package scoring

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/fsscore/zonescore/internal/domain"
)

// CombineMode selects how per-snapshot zone scores are merged.
type CombineMode string

// Supported combination modes for principal reports.
const (
	// CombineMean averages the per-snapshot scores with equal weight.
	// A snapshot with two answered questions weighs as much as one with two
	// hundred. This is the default.
	CombineMean CombineMode = "mean"

	// CombineWeighted weights each snapshot's score by its answered
	// question count, yielding the mean over all answered questions.
	CombineWeighted CombineMode = "weighted"
)

// PrincipalConfig controls how zone scores are combined across snapshots.
type PrincipalConfig struct {
	// Mode selects the combination strategy.
	Mode CombineMode `yaml:"combine_mode" json:"combine_mode" validate:"required,oneof=mean weighted"`
}

// DefaultPrincipalConfig returns the unweighted mean-of-means configuration.
func DefaultPrincipalConfig() PrincipalConfig {
	return PrincipalConfig{Mode: CombineMean}
}

// PrincipalAggregator builds principal reports from the zone scores of
// several snapshots. It is stateless and safe for concurrent use.
type PrincipalAggregator struct {
	config PrincipalConfig
	deps   builderDeps
}

// NewPrincipalAggregator creates a PrincipalAggregator with a validated
// configuration.
func NewPrincipalAggregator(config PrincipalConfig, opts ...Option) (*PrincipalAggregator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	deps := defaultDeps()
	for _, opt := range opts {
		opt(&deps)
	}
	return &PrincipalAggregator{config: config, deps: deps}, nil
}

// Config returns the aggregator configuration.
func (p *PrincipalAggregator) Config() PrincipalConfig { return p.config }

// zoneKey identifies a zone across snapshots.
type zoneKey struct {
	id   int
	name string
}

// Build combines zone scores across snapshots and selects the zone with the
// lowest combined score.
//
// Snapshots with no zone records are skipped and left out of
// AnalyzedSnapshots, which otherwise keeps the input order. Zones are matched
// across snapshots by (ZoneID, ZoneName). Only non-nil scores take part in a
// zone's combination, and question counts are summed over those same
// entries. Ties on the combined score go to the zone that sorts first by
// name.
//
// Build returns a NoDataError when perSnapshot is empty (domain.NoSnapshots),
// when every snapshot is empty (domain.NoSnapshotData), or when no zone is
// scored anywhere (domain.NoScoredZones).
func (p *PrincipalAggregator) Build(perSnapshot []domain.SnapshotZoneScores) (domain.PrincipalReport, error) {
	if len(perSnapshot) == 0 {
		return domain.PrincipalReport{}, domain.NewNoDataError(domain.NoSnapshots)
	}

	requested := make([]domain.SnapshotID, 0, len(perSnapshot))
	analyzed := make([]domain.SnapshotID, 0, len(perSnapshot))

	type accumulator struct {
		key       zoneKey
		scoreSum  float64
		weightSum float64
		samples   int
		total     int
		answered  int
	}
	acc := make(map[zoneKey]*accumulator)

	for _, snap := range perSnapshot {
		requested = append(requested, snap.SnapshotID)
		if len(snap.Zones) == 0 {
			continue
		}
		analyzed = append(analyzed, snap.SnapshotID)

		for _, z := range snap.Zones {
			if !z.Scored() {
				continue
			}
			k := zoneKey{id: z.ZoneID, name: z.ZoneName}
			a, ok := acc[k]
			if !ok {
				a = &accumulator{key: k}
				acc[k] = a
			}

			weight := 1.0
			if p.config.Mode == CombineWeighted {
				weight = float64(z.AnsweredQuestions)
			}
			a.scoreSum += *z.Score * weight
			a.weightSum += weight
			a.samples++
			a.total += z.TotalQuestions
			a.answered += z.AnsweredQuestions
		}
	}

	if len(analyzed) == 0 {
		return domain.PrincipalReport{}, domain.NewNoDataError(domain.NoSnapshotData, requested...)
	}

	combined := make([]domain.ZoneScore, 0, len(acc))
	for _, a := range acc {
		if a.samples == 0 || a.weightSum == 0 {
			continue
		}
		score := domain.RoundScore(a.scoreSum / a.weightSum)
		combined = append(combined, domain.ZoneScore{
			ZoneID:            a.key.id,
			ZoneName:          a.key.name,
			Score:             &score,
			TotalQuestions:    a.total,
			AnsweredQuestions: a.answered,
		})
	}

	if len(combined) == 0 {
		return domain.PrincipalReport{}, domain.NewNoDataError(domain.NoScoredZones, analyzed...)
	}

	lowest := slices.MinFunc(combined, func(a, b domain.ZoneScore) int {
		if c := cmp.Compare(*a.Score, *b.Score); c != 0 {
			return c
		}
		return compareZoneNames(a, b)
	})

	return domain.PrincipalReport{
		ID:                p.deps.newID(),
		Title:             domain.PrincipalReportTitle,
		CreationDate:      p.deps.now(),
		LowestAverageZone: lowest,
		AnalyzedSnapshots: analyzed,
	}, nil
}
