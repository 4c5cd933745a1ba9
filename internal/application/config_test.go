package application

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsscore/zonescore/infrastructure/scoring"
	"github.com/fsscore/zonescore/internal/ports"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, scoring.CombineMean, cfg.Report.CombineMode)
	assert.Equal(t, 3, cfg.Report.Ranker.TopN)
	assert.Equal(t, 60.0, cfg.Report.Ranker.LowScoreThreshold)
	assert.Equal(t, SourceKindYAML, cfg.Source.Kind)
}

func TestLoadConfigFromReader(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		verify  func(t *testing.T, cfg ServiceConfig)
	}{
		{
			name: "empty document keeps defaults",
			yaml: "",
			verify: func(t *testing.T, cfg ServiceConfig) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "partial override",
			yaml: `
report:
  combine_mode: weighted
  ranker:
    top_n: 5
service:
  max_concurrent_snapshots: 8
  report_timeout: 1m
`,
			verify: func(t *testing.T, cfg ServiceConfig) {
				assert.Equal(t, scoring.CombineWeighted, cfg.Report.CombineMode)
				assert.Equal(t, 5, cfg.Report.Ranker.TopN)
				assert.Equal(t, 3, cfg.Report.Ranker.BottomN, "unset fields keep their default")
				assert.Equal(t, 8, cfg.Service.MaxConcurrentSnapshots)
				assert.Equal(t, time.Minute, cfg.Service.ReportTimeout)
			},
		},
		{
			name: "postgres source",
			yaml: `
source:
  kind: postgres
  path: ""
  ensure_schema: true
  postgres:
    host: db.internal
    database: scores
    max_conns: 20
  circuit_breaker:
    max_failures: 0
`,
			verify: func(t *testing.T, cfg ServiceConfig) {
				assert.Equal(t, SourceKindPostgres, cfg.Source.Kind)
				assert.True(t, cfg.Source.EnsureSchema)
				assert.Equal(t, "db.internal", cfg.Source.Postgres.Host)
				assert.Equal(t, 5432, cfg.Source.Postgres.Port)
				assert.Equal(t, int32(20), cfg.Source.Postgres.MaxConns)
				assert.Zero(t, cfg.Source.CircuitBreaker.MaxFailures)
			},
		},
		{
			name:    "unknown key",
			yaml:    "report:\n  top: 3\n",
			wantErr: "field top not found",
		},
		{
			name:    "unsupported combine mode",
			yaml:    "report:\n  combine_mode: median\n",
			wantErr: "CombineMode",
		},
		{
			name:    "yaml source needs a path",
			yaml:    "source:\n  path: \"\"\n",
			wantErr: "Path",
		},
		{
			name:    "unknown source kind",
			yaml:    "source:\n  kind: redis\n",
			wantErr: "Kind",
		},
		{
			name:    "retry ceiling below base delay",
			yaml:    "source:\n  retry_base_delay: 2s\n  retry_max_delay: 1s\n",
			wantErr: "RetryMaxDelay",
		},
		{
			name:    "metrics need a textfile",
			yaml:    "metrics:\n  enabled: true\n",
			wantErr: "Textfile",
		},
		{
			name:    "bad log level",
			yaml:    "logging:\n  level: loud\n",
			wantErr: "Level",
		},
		{
			name:    "invalid ranker",
			yaml:    "report:\n  ranker:\n    top_n: 0\n",
			wantErr: "TopN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfigFromReader(strings.NewReader(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var cerr *ports.ConfigError
				assert.True(t, errors.As(err, &cerr))
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zonescore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  path: /data/records.yaml\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/records.yaml", cfg.Source.Path)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}
