package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsscore/zonescore/infrastructure/logging"
	"github.com/fsscore/zonescore/infrastructure/persistence/postgres"
	"github.com/fsscore/zonescore/infrastructure/scoring"
	"github.com/fsscore/zonescore/infrastructure/source"
	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
	"github.com/fsscore/zonescore/internal/testutils"
)

func TestSourceMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SourceConfig
		metrics ports.MetricsCollector
		want    int
	}{
		{name: "defaults without metrics", cfg: DefaultConfig().Source, want: 5},
		{name: "defaults with metrics", cfg: DefaultConfig().Source, metrics: newNopCollector(), want: 6},
		{name: "everything disabled keeps tracing", cfg: SourceConfig{Kind: SourceKindYAML}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, SourceMiddleware(tt.cfg, tt.metrics), tt.want)
		})
	}
}

func TestSourceMiddleware_RetriesTransientFailures(t *testing.T) {
	// Given a store that fails twice before answering
	mock := testutils.NewMockRecordSource(testutils.ScenarioA())
	mock.FailUntilAttempt = 2
	cfg := DefaultConfig().Source
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond

	src := source.Chain(mock, SourceMiddleware(cfg, nil)...)

	// When fetching through the configured chain
	zones, err := src.FetchZones(context.Background(), 1)

	// Then the retry stage absorbs the failures
	require.NoError(t, err)
	assert.Len(t, zones, 2)
	assert.Equal(t, 3, mock.Calls(ports.OpFetchZones))
}

func TestOpenSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SourceConfig
		wantErr error
	}{
		{name: "missing record file", cfg: SourceConfig{Kind: SourceKindYAML, Path: "testdata/missing.yaml"}},
		{name: "unknown kind", cfg: SourceConfig{Kind: "redis"}},
		{
			name:    "bad postgres url",
			cfg:     SourceConfig{Kind: SourceKindPostgres, Postgres: postgresURL("postgres://%zz")},
			wantErr: ports.ErrSourceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, release, err := OpenSource(context.Background(), tt.cfg, nil, logging.NewNop())
			require.Error(t, err)
			assert.Nil(t, src)
			assert.Nil(t, release)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewApp_EndToEnd(t *testing.T) {
	// Given a config reading the sample record file with metrics enabled
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Source.Path = filepath.Join("testdata", "records.yaml")
	cfg.Logging = LoggingConfig{Mode: "prod", Level: "error"}
	cfg.Metrics = MetricsConfig{Enabled: true, Textfile: filepath.Join(dir, "zonescore.prom")}

	app, err := NewApp(context.Background(), cfg,
		scoring.WithClock(func() time.Time { return fixedNow }),
		scoring.WithIDGenerator(func() string { return "report-1" }),
	)
	require.NoError(t, err)

	// When building both reports
	student, err := app.Service.StudentReport(context.Background(), 1)
	require.NoError(t, err)
	principal, err := app.Service.PrincipalReport(context.Background(), []domain.SnapshotID{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, app.Close())

	// Then the irrelevant question is ignored and snapshot 3 is excluded
	assert.Equal(t, 2, student.ZonesAnalyzed)
	assert.Equal(t, []string{"Art"}, zoneNames(student.LowScoreZones))
	assert.Equal(t, "Art", principal.LowestAverageZone.ZoneName)
	assert.Equal(t, 65.0, principal.LowestAverageZone.ScoreValue())
	assert.Equal(t, []domain.SnapshotID{1, 2}, principal.AnalyzedSnapshots)

	// And the metrics textfile carries report and fetch series
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `zonescore_reports_total{report_type="student",status="success"} 1`)
	assert.Contains(t, string(data), `zonescore_reports_total{report_type="principal",status="success"} 1`)
	assert.Contains(t, string(data), "zonescore_source_fetch_total")
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Report.CombineMode = "median"

	_, err := NewApp(context.Background(), cfg)

	var cerr *ports.ConfigError
	require.ErrorAs(t, err, &cerr)
}

func postgresURL(url string) postgres.Config {
	c := postgres.DefaultConfig()
	c.URL = url
	return c
}

type nopCollector struct{}

func newNopCollector() ports.MetricsCollector { return nopCollector{} }

func (nopCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (nopCollector) RecordCounter(string, float64, map[string]string)       {}
func (nopCollector) RecordGauge(string, float64, map[string]string)         {}
func (nopCollector) RecordHistogram(string, float64, map[string]string)     {}
