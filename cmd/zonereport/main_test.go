package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsscore/zonescore/internal/domain"
)

const recordsFile = "../../internal/application/testdata/records.yaml"

// quietConfig keeps zap output out of the test log.
func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zonescore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  mode: prod\n  level: error\n"), 0o600))
	return path
}

func TestRun_Student(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(),
		[]string{"-config", quietConfig(t), "-records", recordsFile, "student", "-snapshot", "1"},
		&stdout, &stderr)

	require.NoError(t, err)
	var report domain.StudentReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, domain.StudentReportTitle, report.Title)
	assert.Equal(t, domain.SnapshotID(1), report.SnapshotID)
	require.Len(t, report.TopZones, 2)
	assert.Equal(t, "Math", report.TopZones[0].ZoneName)
	assert.Contains(t, stderr.String(), "Student report generated for snapshot 1 with 2 zones analyzed")
}

func TestRun_Principal(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(),
		[]string{"-config", quietConfig(t), "-records", recordsFile, "principal", "-snapshots", "1, 2,3"},
		&stdout, &stderr)

	require.NoError(t, err)
	var report domain.PrincipalReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, []domain.SnapshotID{1, 2}, report.AnalyzedSnapshots)
	assert.Equal(t, "Art", report.LowestAverageZone.ZoneName)
	assert.Contains(t, stderr.String(), "Lowest average zone: Art (65.00)")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{name: "no command", args: nil, wantCode: exitUsage},
		{name: "unknown command", args: []string{"export"}, wantCode: exitUsage},
		{name: "missing snapshot", args: []string{"student"}, wantCode: exitUsage},
		{name: "bad snapshot list", args: []string{"principal", "-snapshots", "1,x"}, wantCode: exitUsage},
		{name: "negative snapshot in list", args: []string{"principal", "-snapshots", "1,-4"}, wantCode: exitUsage},
		{name: "snapshot without zones", args: []string{"student", "-snapshot", "9"}, wantCode: exitNoData},
		{name: "missing config file", args: []string{"-config", "does-not-exist.yaml", "student", "-snapshot", "1"}, wantCode: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append([]string{"-records", recordsFile}, tt.args...)
			if tt.name != "missing config file" {
				args = append([]string{"-config", quietConfig(t)}, args...)
			}

			err := run(context.Background(), args, &stdout, &stderr)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, exitCode(err))
			assert.Empty(t, stdout.String())
		})
	}
}

func TestParseSnapshotIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []domain.SnapshotID
		wantErr bool
	}{
		{in: "1", want: []domain.SnapshotID{1}},
		{in: " 3, 1 ,2", want: []domain.SnapshotID{3, 1, 2}},
		{in: "0,0", want: []domain.SnapshotID{0, 0}},
		{in: "", wantErr: true},
		{in: "1,,2", wantErr: true},
		{in: "a", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseSnapshotIDs(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitNoData, exitCode(domain.NewNoDataError(domain.NoSnapshotData, 1)))
	assert.Equal(t, exitUsage, exitCode(domain.NewValidationError("snapshot")))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
}
