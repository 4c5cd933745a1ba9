package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSnapshotID_Validate(t *testing.T) {
	assert.NoError(t, SnapshotID(0).Validate())
	assert.NoError(t, SnapshotID(12).Validate())

	err := SnapshotID(-1).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "snapshot id must be non-negative, got -1")

	assert.NoError(t, SnapshotID(MaxSnapshotID).Validate())
	err = SnapshotID(MaxSnapshotID + 1).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "snapshot id must not exceed 2147483647, got 2147483648")
}

func TestQuestion_Validate(t *testing.T) {
	valid := Question{SnapshotID: 1, QuestionID: 10, Text: "2+2?", Score: intPtr(80), IsRelevant: true, TestID: 3}

	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr string
	}{
		{name: "valid answered", mutate: func(q *Question) {}},
		{name: "valid unanswered", mutate: func(q *Question) { q.Score = nil }},
		{name: "zero score allowed", mutate: func(q *Question) { q.Score = intPtr(0) }},
		{name: "max score allowed", mutate: func(q *Question) { q.Score = intPtr(MaxScore) }},
		{name: "negative score", mutate: func(q *Question) { q.Score = intPtr(-1) }, wantErr: "Score failed min"},
		{name: "score above max", mutate: func(q *Question) { q.Score = intPtr(101) }, wantErr: "Score failed max"},
		{name: "missing text", mutate: func(q *Question) { q.Text = "" }, wantErr: "Text failed required"},
		{
			name:    "text too long",
			mutate:  func(q *Question) { q.Text = strings.Repeat("x", MaxQuestionTextLength+1) },
			wantErr: "Text failed max",
		},
		{name: "non-positive question id", mutate: func(q *Question) { q.QuestionID = 0 }, wantErr: "QuestionID failed gt"},
		{name: "negative snapshot", mutate: func(q *Question) { q.SnapshotID = -2 }, wantErr: "SnapshotID failed min"},
		{name: "missing test id", mutate: func(q *Question) { q.TestID = 0 }, wantErr: "TestID failed gt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestZoneAndMembership_Validate(t *testing.T) {
	assert.NoError(t, Zone{SnapshotID: 1, ZoneID: 2, Name: "Math", IsRelevant: true}.Validate())
	assert.Error(t, Zone{SnapshotID: 1, ZoneID: 2}.Validate(), "name is required")
	assert.Error(t, Zone{SnapshotID: 1, ZoneID: 0, Name: "Math"}.Validate(), "zone id must be positive")

	assert.NoError(t, ZoneMembership{SnapshotID: 0, ZoneID: 1, QuestionID: 1}.Validate())
	err := ZoneMembership{SnapshotID: 1, ZoneID: 1, QuestionID: -5}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error for zone membership")
}

func TestRoundScore(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 230.0 / 3.0, want: 76.67},
		{in: 60, want: 60},
		{in: 55.555, want: 55.56},
		{in: 12.344, want: 12.34},
		{in: 0, want: 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RoundScore(tt.in), 1e-9, "RoundScore(%v)", tt.in)
	}
}

func TestReportSummaries(t *testing.T) {
	sr := StudentReport{SnapshotID: 3, ZonesAnalyzed: 5}
	assert.Equal(t, "Student report generated for snapshot 3 with 5 zones analyzed", sr.Summary())

	pr := PrincipalReport{
		LowestAverageZone: ZoneScore{ZoneID: 1, ZoneName: "Math", Score: ScorePtr(60)},
		AnalyzedSnapshots: []SnapshotID{1, 2},
	}
	assert.Equal(t, "Principal report generated across 2 snapshots. Lowest average zone: Math (60.00)", pr.Summary())
}

func TestZoneScore_ScoreValue(t *testing.T) {
	assert.False(t, ZoneScore{}.Scored())
	assert.Zero(t, ZoneScore{}.ScoreValue())

	z := ZoneScore{Score: ScorePtr(42.5)}
	assert.True(t, z.Scored())
	assert.Equal(t, 42.5, z.ScoreValue())
}
