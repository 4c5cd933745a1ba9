package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsscore/zonescore/internal/domain"
)

func score(v int) *int { return &v }

func question(snap domain.SnapshotID, id int, s *int, relevant bool) domain.Question {
	return domain.Question{SnapshotID: snap, QuestionID: id, Text: "q", Score: s, IsRelevant: relevant, TestID: 1}
}

func zone(snap domain.SnapshotID, id int, name string, relevant bool) domain.Zone {
	return domain.Zone{SnapshotID: snap, ZoneID: id, Name: name, IsRelevant: relevant}
}

func link(snap domain.SnapshotID, zoneID, questionID int) domain.ZoneMembership {
	return domain.ZoneMembership{SnapshotID: snap, ZoneID: zoneID, QuestionID: questionID}
}

// TestAggregateZoneScores_ScenarioA verifies the mixed answered/unanswered
// snapshot: Math averages 76.67 over three answers and Science stays
// unscored with two unanswered questions.
func TestAggregateZoneScores_ScenarioA(t *testing.T) {
	zones := []domain.Zone{zone(1, 2, "Science", true), zone(1, 1, "Math", true)}
	questions := []domain.Question{
		question(1, 1, score(80), true),
		question(1, 2, score(60), true),
		question(1, 3, score(90), true),
		question(1, 4, nil, true),
		question(1, 5, nil, true),
	}
	memberships := []domain.ZoneMembership{
		link(1, 1, 1), link(1, 1, 2), link(1, 1, 3),
		link(1, 2, 4), link(1, 2, 5),
	}

	got := AggregateZoneScores(1, zones, memberships, questions)

	require.Len(t, got, 2)
	assert.Equal(t, "Math", got[0].ZoneName, "output is sorted by zone name")
	require.NotNil(t, got[0].Score)
	assert.InDelta(t, 76.67, *got[0].Score, 1e-9)
	assert.Equal(t, 3, got[0].TotalQuestions)
	assert.Equal(t, 3, got[0].AnsweredQuestions)

	assert.Equal(t, "Science", got[1].ZoneName)
	assert.Nil(t, got[1].Score)
	assert.Equal(t, 2, got[1].TotalQuestions)
	assert.Equal(t, 0, got[1].AnsweredQuestions)
}

// TestAggregateZoneScores_Eligibility covers the relevance and tolerance
// rules of the aggregator.
func TestAggregateZoneScores_Eligibility(t *testing.T) {
	tests := []struct {
		name        string
		zones       []domain.Zone
		questions   []domain.Question
		memberships []domain.ZoneMembership
		want        []domain.ZoneScore
	}{
		{
			name:  "irrelevant zone is excluded entirely",
			zones: []domain.Zone{zone(1, 1, "Art", false), zone(1, 2, "Biology", true)},
			questions: []domain.Question{
				question(1, 1, score(50), true),
			},
			memberships: []domain.ZoneMembership{link(1, 1, 1), link(1, 2, 1)},
			want: []domain.ZoneScore{
				{ZoneID: 2, ZoneName: "Biology", Score: domain.ScorePtr(50), TotalQuestions: 1, AnsweredQuestions: 1},
			},
		},
		{
			name:  "irrelevant question is treated as unlinked",
			zones: []domain.Zone{zone(1, 1, "Math", true)},
			questions: []domain.Question{
				question(1, 1, score(100), false),
				question(1, 2, score(40), true),
				question(1, 3, nil, false),
			},
			memberships: []domain.ZoneMembership{link(1, 1, 1), link(1, 1, 2), link(1, 1, 3)},
			want: []domain.ZoneScore{
				{ZoneID: 1, ZoneName: "Math", Score: domain.ScorePtr(40), TotalQuestions: 1, AnsweredQuestions: 1},
			},
		},
		{
			name:        "zone without questions keeps zero counts and nil score",
			zones:       []domain.Zone{zone(1, 1, "History", true)},
			questions:   []domain.Question{question(1, 1, score(70), true)},
			memberships: nil,
			want: []domain.ZoneScore{
				{ZoneID: 1, ZoneName: "History", Score: nil, TotalQuestions: 0, AnsweredQuestions: 0},
			},
		},
		{
			name:      "dangling memberships are ignored",
			zones:     []domain.Zone{zone(1, 1, "Math", true)},
			questions: []domain.Question{question(1, 1, score(70), true)},
			memberships: []domain.ZoneMembership{
				link(1, 1, 1),
				link(1, 1, 999), // unknown question
				link(1, 42, 1),  // unknown zone
			},
			want: []domain.ZoneScore{
				{ZoneID: 1, ZoneName: "Math", Score: domain.ScorePtr(70), TotalQuestions: 1, AnsweredQuestions: 1},
			},
		},
		{
			name:        "duplicate membership counts once",
			zones:       []domain.Zone{zone(1, 1, "Math", true)},
			questions:   []domain.Question{question(1, 1, score(70), true), question(1, 2, score(80), true)},
			memberships: []domain.ZoneMembership{link(1, 1, 1), link(1, 1, 1), link(1, 1, 2)},
			want: []domain.ZoneScore{
				{ZoneID: 1, ZoneName: "Math", Score: domain.ScorePtr(75), TotalQuestions: 2, AnsweredQuestions: 2},
			},
		},
		{
			name:  "records of other snapshots are ignored",
			zones: []domain.Zone{zone(1, 1, "Math", true), zone(2, 3, "Other", true)},
			questions: []domain.Question{
				question(1, 1, score(70), true),
				question(2, 1, score(10), true),
			},
			memberships: []domain.ZoneMembership{link(1, 1, 1), link(2, 1, 1), link(2, 3, 1)},
			want: []domain.ZoneScore{
				{ZoneID: 1, ZoneName: "Math", Score: domain.ScorePtr(70), TotalQuestions: 1, AnsweredQuestions: 1},
			},
		},
		{
			name:  "question shared between zones counts in each",
			zones: []domain.Zone{zone(1, 1, "Math", true), zone(1, 2, "Logic", true)},
			questions: []domain.Question{
				question(1, 1, score(90), true),
				question(1, 2, nil, true),
			},
			memberships: []domain.ZoneMembership{link(1, 1, 1), link(1, 2, 1), link(1, 2, 2)},
			want: []domain.ZoneScore{
				{ZoneID: 2, ZoneName: "Logic", Score: domain.ScorePtr(90), TotalQuestions: 2, AnsweredQuestions: 1},
				{ZoneID: 1, ZoneName: "Math", Score: domain.ScorePtr(90), TotalQuestions: 1, AnsweredQuestions: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateZoneScores(1, tt.zones, tt.memberships, tt.questions)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestAggregateZoneScores_NoRelevantZones verifies that a snapshot without
// relevant zones yields an empty, non-nil list rather than an error.
func TestAggregateZoneScores_NoRelevantZones(t *testing.T) {
	got := AggregateZoneScores(5, []domain.Zone{zone(5, 1, "Math", false)}, nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = AggregateZoneScores(5, nil, nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// TestAggregateZoneScores_Ordering verifies case-insensitive name ordering
// with exact name and id as successive tie-breaks.
func TestAggregateZoneScores_Ordering(t *testing.T) {
	zones := []domain.Zone{
		zone(1, 4, "beta", true),
		zone(1, 3, "Alpha", true),
		zone(1, 2, "Beta", true),
		zone(1, 5, "alpha", true),
		zone(1, 1, "Alpha", true),
	}

	got := AggregateZoneScores(1, zones, nil, nil)

	names := make([]string, 0, len(got))
	ids := make([]int, 0, len(got))
	for _, z := range got {
		names = append(names, z.ZoneName)
		ids = append(ids, z.ZoneID)
	}
	assert.Equal(t, []string{"Alpha", "Alpha", "alpha", "Beta", "beta"}, names)
	assert.Equal(t, []int{1, 3, 5, 2, 4}, ids)
}

// TestAggregateZoneScores_Invariants checks AnsweredQuestions <=
// TotalQuestions and that Score is nil exactly when nothing is answered.
func TestAggregateZoneScores_Invariants(t *testing.T) {
	zones := make([]domain.Zone, 0, 6)
	questions := make([]domain.Question, 0, 30)
	memberships := make([]domain.ZoneMembership, 0, 60)
	for z := 1; z <= 6; z++ {
		zones = append(zones, zone(1, z, string(rune('A'+z)), z != 6))
	}
	for q := 1; q <= 30; q++ {
		var s *int
		if q%3 != 0 {
			s = score((q * 7) % 101)
		}
		questions = append(questions, question(1, q, s, q%5 != 0))
		memberships = append(memberships, link(1, q%6+1, q), link(1, (q*2)%6+1, q))
	}

	got := AggregateZoneScores(1, zones, memberships, questions)
	require.Len(t, got, 5)
	for _, z := range got {
		assert.LessOrEqual(t, z.AnsweredQuestions, z.TotalQuestions, z.ZoneName)
		assert.Equal(t, z.AnsweredQuestions == 0, z.Score == nil, z.ZoneName)
		if z.Score != nil {
			assert.GreaterOrEqual(t, *z.Score, 0.0)
			assert.LessOrEqual(t, *z.Score, 100.0)
		}
	}
}
