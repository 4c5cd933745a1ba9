package scoring

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/fsscore/zonescore/internal/domain"
)

// RankerConfig controls the size of the ranked lists and the low-score
// cutoff of a student report.
type RankerConfig struct {
	// TopN is the maximum number of zones in TopZones.
	TopN int `yaml:"top_n" json:"top_n" validate:"min=1,max=100"`

	// BottomN is the maximum number of zones in BottomZones.
	BottomN int `yaml:"bottom_n" json:"bottom_n" validate:"min=1,max=100"`

	// LowScoreThreshold is the exclusive upper bound for LowScoreZones.
	LowScoreThreshold float64 `yaml:"low_score_threshold" json:"low_score_threshold" validate:"min=0,max=100"`
}

// DefaultRankerConfig returns the standard student report layout:
// three top zones, three bottom zones and a cutoff of 60.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		TopN:              3,
		BottomN:           3,
		LowScoreThreshold: 60,
	}
}

// StudentRanker builds student reports from one snapshot's zone scores.
// It is stateless and safe for concurrent use.
type StudentRanker struct {
	config RankerConfig
	deps   builderDeps
}

// NewStudentRanker creates a StudentRanker with a validated configuration.
func NewStudentRanker(config RankerConfig, opts ...Option) (*StudentRanker, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	deps := defaultDeps()
	for _, opt := range opts {
		opt(&deps)
	}
	return &StudentRanker{config: config, deps: deps}, nil
}

// Config returns the ranker configuration.
func (r *StudentRanker) Config() RankerConfig { return r.config }

// Build ranks the scored zones of a snapshot.
//
// zoneScores is expected in the order produced by AggregateZoneScores; that
// order breaks score ties in every list. Unscored zones are left out of all
// three lists but still count toward ZonesAnalyzed. TopZones and
// BottomZones may share zones when fewer than TopN+BottomN zones are scored.
//
// An empty zoneScores slice means the snapshot has no relevant zones, and
// Build returns a NoDataError with reason domain.NoZones.
func (r *StudentRanker) Build(
	snapshotID domain.SnapshotID,
	zoneScores []domain.ZoneScore,
) (domain.StudentReport, error) {
	if len(zoneScores) == 0 {
		return domain.StudentReport{}, domain.NewNoDataError(domain.NoZones, snapshotID)
	}

	scored := make([]domain.ZoneScore, 0, len(zoneScores))
	for _, z := range zoneScores {
		if z.Scored() {
			scored = append(scored, z)
		}
	}

	ascending := slices.Clone(scored)
	slices.SortStableFunc(ascending, func(a, b domain.ZoneScore) int {
		return cmp.Compare(*a.Score, *b.Score)
	})

	descending := slices.Clone(scored)
	slices.SortStableFunc(descending, func(a, b domain.ZoneScore) int {
		return cmp.Compare(*b.Score, *a.Score)
	})

	low := make([]domain.ZoneScore, 0)
	for _, z := range ascending {
		if *z.Score < r.config.LowScoreThreshold {
			low = append(low, z)
		}
	}

	return domain.StudentReport{
		ID:            r.deps.newID(),
		Title:         domain.StudentReportTitle,
		SnapshotID:    snapshotID,
		CreationDate:  r.deps.now(),
		ZonesAnalyzed: len(zoneScores),
		TopZones:      cloneZones(descending[:min(r.config.TopN, len(descending))]),
		BottomZones:   cloneZones(ascending[:min(r.config.BottomN, len(ascending))]),
		LowScoreZones: low,
	}, nil
}
