package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fsscore/zonescore/infrastructure/logging"
	"github.com/fsscore/zonescore/infrastructure/scoring"
	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// ErrMissingDependency is returned by NewReportService when a required
// collaborator is nil.
var ErrMissingDependency = errors.New("missing report service dependency")

// defaultMaxConcurrentSnapshots bounds the principal fan-out when no
// option overrides it.
const defaultMaxConcurrentSnapshots = 4

// ReportService fetches snapshot records and turns them into student and
// principal reports.
//
// Every call recomputes from freshly fetched records. Concurrent loads of
// the same snapshot share one set of fetches, but nothing is retained once
// they finish. ReportService is safe for concurrent use.
type ReportService struct {
	source    ports.RecordSource
	ranker    *scoring.StudentRanker
	principal *scoring.PrincipalAggregator

	logger        *logging.Logger
	observer      ports.ReportObserver
	maxConcurrent int
	timeout       time.Duration

	flights singleflight.Group
}

// ServiceOption customizes a ReportService.
type ServiceOption func(*ReportService)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) ServiceOption {
	return func(s *ReportService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver sets the observer notified around each report.
func WithObserver(o ports.ReportObserver) ServiceOption {
	return func(s *ReportService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMaxConcurrentSnapshots caps how many snapshots a principal report
// loads at once. Values below one are ignored.
func WithMaxConcurrentSnapshots(n int) ServiceOption {
	return func(s *ReportService) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithReportTimeout bounds every report request. Zero disables the bound.
func WithReportTimeout(d time.Duration) ServiceOption {
	return func(s *ReportService) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// NewReportService creates a ReportService. The source, ranker and
// principal aggregator are required.
func NewReportService(
	source ports.RecordSource,
	ranker *scoring.StudentRanker,
	principal *scoring.PrincipalAggregator,
	opts ...ServiceOption,
) (*ReportService, error) {
	switch {
	case source == nil:
		return nil, fmt.Errorf("%w: record source", ErrMissingDependency)
	case ranker == nil:
		return nil, fmt.Errorf("%w: student ranker", ErrMissingDependency)
	case principal == nil:
		return nil, fmt.Errorf("%w: principal aggregator", ErrMissingDependency)
	}

	s := &ReportService{
		source:        source,
		ranker:        ranker,
		principal:     principal,
		logger:        logging.NewNop(),
		observer:      nopObserver{},
		maxConcurrent: defaultMaxConcurrentSnapshots,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StudentReport builds the student report of one snapshot.
//
// An out-of-range id is rejected with domain.ErrInvalidInput before any
// fetch.
// A snapshot without relevant zones yields a domain.NoDataError with
// reason domain.NoZones.
func (s *ReportService) StudentReport(ctx context.Context, snapshotID domain.SnapshotID) (report domain.StudentReport, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ctx, done := s.observer.ReportStarted(ctx, ports.ReportStudent, []domain.SnapshotID{snapshotID})
	var outcome ports.ReportOutcome
	defer func() {
		outcome.Err = err
		done(outcome)
	}()

	log := s.logger.With("report_type", ports.ReportStudent, "snapshot_id", snapshotID)

	if err := snapshotID.Validate(); err != nil {
		log.Warn("rejected student report request", "error", err)
		return domain.StudentReport{}, err
	}

	zones, err := s.loadZoneScores(ctx, snapshotID)
	if err != nil {
		log.Error("failed to load snapshot", "error", err)
		return domain.StudentReport{}, err
	}

	report, err = s.ranker.Build(snapshotID, zones)
	if err != nil {
		if reason, ok := domain.IsNoData(err); ok {
			log.Info("no data for student report", "reason", reason)
		}
		return domain.StudentReport{}, err
	}

	outcome.AnalyzedSnapshots = 1
	outcome.ScoredZones, outcome.Scores = scoredValues(zones)

	log.Info(report.Summary(),
		"report_id", report.ID,
		"top_zones", len(report.TopZones),
		"low_score_zones", len(report.LowScoreZones),
	)
	return report, nil
}

// PrincipalReport builds the principal report across snapshots.
//
// Ids are validated before any fetch, and a repeated id is loaded once at
// the position of its first occurrence. Snapshots are loaded concurrently,
// bounded by the configured limit; the first fetch failure cancels the rest
// and is returned. Snapshots without zone data are excluded from the
// combination and reported through the observer.
func (s *ReportService) PrincipalReport(ctx context.Context, snapshotIDs []domain.SnapshotID) (report domain.PrincipalReport, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ctx, done := s.observer.ReportStarted(ctx, ports.ReportPrincipal, snapshotIDs)
	var outcome ports.ReportOutcome
	defer func() {
		outcome.Err = err
		done(outcome)
	}()

	log := s.logger.With("report_type", ports.ReportPrincipal, "snapshot_ids", snapshotIDs)

	if len(snapshotIDs) == 0 {
		return domain.PrincipalReport{}, domain.NewNoDataError(domain.NoSnapshots)
	}
	ids, err := uniqueSnapshotIDs(snapshotIDs)
	if err != nil {
		log.Warn("rejected principal report request", "error", err)
		return domain.PrincipalReport{}, err
	}

	perSnapshot := make([]domain.SnapshotZoneScores, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, id := range ids {
		g.Go(func() error {
			zones, err := s.loadZoneScores(gctx, id)
			if err != nil {
				return err
			}
			perSnapshot[i] = domain.SnapshotZoneScores{SnapshotID: id, Zones: zones}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("failed to load snapshots", "error", err)
		return domain.PrincipalReport{}, err
	}

	report, err = s.principal.Build(perSnapshot)
	if err != nil {
		if reason, ok := domain.IsNoData(err); ok {
			log.Info("no data for principal report", "reason", reason)
		}
		return domain.PrincipalReport{}, err
	}

	outcome.AnalyzedSnapshots = len(report.AnalyzedSnapshots)
	outcome.ExcludedSnapshots = len(ids) - len(report.AnalyzedSnapshots)
	outcome.ScoredZones = 1
	outcome.Scores = []float64{report.LowestAverageZone.ScoreValue()}

	if outcome.ExcludedSnapshots > 0 {
		log.Info("snapshots without zone data were excluded",
			"excluded", outcome.ExcludedSnapshots,
			"analyzed_snapshots", report.AnalyzedSnapshots,
		)
	}
	log.Info(report.Summary(), "report_id", report.ID)
	return report, nil
}

// loadZoneScores fetches one snapshot and aggregates its zone scores.
// Concurrent callers for the same snapshot share a single load and each
// receive their own copy of the result.
//
// The shared load runs detached from any one caller's cancellation, bounded
// only by the report timeout, so a caller that gives up returns its own
// context error without failing the others.
func (s *ReportService) loadZoneScores(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.ZoneScore, error) {
	flight := s.flights.DoChan(strconv.Itoa(int(snapshotID)), func() (any, error) {
		fctx, cancel := s.withTimeout(context.WithoutCancel(ctx))
		defer cancel()

		records, err := s.fetchRecords(fctx, snapshotID)
		if err != nil {
			return nil, err
		}
		return scoring.AggregateZoneScores(snapshotID, records.Zones, records.Memberships, records.Questions), nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load snapshot %d: %w", snapshotID, ctx.Err())
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		zones := res.Val.([]domain.ZoneScore)
		if res.Shared {
			zones = slices.Clone(zones)
		}
		return zones, nil
	}
}

// fetchRecords runs the three fetches of a snapshot concurrently.
func (s *ReportService) fetchRecords(ctx context.Context, snapshotID domain.SnapshotID) (domain.SnapshotRecords, error) {
	records := domain.SnapshotRecords{SnapshotID: snapshotID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records.Questions, err = s.source.FetchQuestions(gctx, snapshotID)
		return err
	})
	g.Go(func() error {
		var err error
		records.Zones, err = s.source.FetchZones(gctx, snapshotID)
		return err
	})
	g.Go(func() error {
		var err error
		records.Memberships, err = s.source.FetchZoneMemberships(gctx, snapshotID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.SnapshotRecords{}, err
	}

	s.logger.Debug("fetched snapshot records",
		"snapshot_id", snapshotID,
		"questions", len(records.Questions),
		"zones", len(records.Zones),
		"memberships", len(records.Memberships),
	)
	return records, nil
}

func (s *ReportService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// uniqueSnapshotIDs validates every id and drops repeats, keeping the
// first occurrence. All invalid ids are reported together.
func uniqueSnapshotIDs(ids []domain.SnapshotID) ([]domain.SnapshotID, error) {
	verr := domain.NewValidationError("snapshot")
	seen := make(map[domain.SnapshotID]struct{}, len(ids))
	out := make([]domain.SnapshotID, 0, len(ids))
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			var idErr *domain.ValidationError
			if errors.As(err, &idErr) {
				verr.Errors = append(verr.Errors, idErr.Errors...)
			}
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if verr.HasErrors() {
		return nil, verr
	}
	return out, nil
}

// scoredValues counts the scored zones and collects their scores.
func scoredValues(zones []domain.ZoneScore) (int, []float64) {
	scores := make([]float64, 0, len(zones))
	for _, z := range zones {
		if z.Scored() {
			scores = append(scores, *z.Score)
		}
	}
	return len(scores), scores
}

// nopObserver is used when no observer is configured.
type nopObserver struct{}

func (nopObserver) ReportStarted(ctx context.Context, _ ports.ReportKind, _ []domain.SnapshotID) (context.Context, func(ports.ReportOutcome)) {
	return ctx, func(ports.ReportOutcome) {}
}
