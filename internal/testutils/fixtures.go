package testutils

import (
	"github.com/fsscore/zonescore/internal/domain"
)

// Score returns a pointer to an integer question score.
func Score(v int) *int { return &v }

// Question builds a relevant question fixture.
func Question(snapshotID domain.SnapshotID, questionID int, score *int) domain.Question {
	return domain.Question{
		SnapshotID: snapshotID,
		QuestionID: questionID,
		Text:       "question text",
		Score:      score,
		IsRelevant: true,
		TestID:     1,
	}
}

// Zone builds a relevant zone fixture.
func Zone(snapshotID domain.SnapshotID, zoneID int, name string) domain.Zone {
	return domain.Zone{SnapshotID: snapshotID, ZoneID: zoneID, Name: name, IsRelevant: true}
}

// Link builds a zone membership fixture.
func Link(snapshotID domain.SnapshotID, zoneID, questionID int) domain.ZoneMembership {
	return domain.ZoneMembership{SnapshotID: snapshotID, ZoneID: zoneID, QuestionID: questionID}
}

// ZoneWithScores builds a zone whose answered questions carry the given
// scores. A nil entry adds an unanswered question. Question ids start at
// firstQuestionID and increase by one.
func ZoneWithScores(snapshotID domain.SnapshotID, zoneID int, name string, firstQuestionID int, scores ...*int) domain.SnapshotRecords {
	rec := domain.SnapshotRecords{
		SnapshotID: snapshotID,
		Zones:      []domain.Zone{Zone(snapshotID, zoneID, name)},
	}
	for i, s := range scores {
		qid := firstQuestionID + i
		rec.Questions = append(rec.Questions, Question(snapshotID, qid, s))
		rec.Memberships = append(rec.Memberships, Link(snapshotID, zoneID, qid))
	}
	return rec
}

// Merge concatenates record bundles of the same snapshot.
func Merge(snapshotID domain.SnapshotID, parts ...domain.SnapshotRecords) domain.SnapshotRecords {
	out := domain.SnapshotRecords{SnapshotID: snapshotID}
	for _, p := range parts {
		out.Questions = append(out.Questions, p.Questions...)
		out.Zones = append(out.Zones, p.Zones...)
		out.Memberships = append(out.Memberships, p.Memberships...)
	}
	return out
}

// ScenarioA is a single snapshot where Math is answered (80, 60, 90) and
// Science has two unanswered questions.
func ScenarioA() domain.SnapshotRecords {
	return Merge(1,
		ZoneWithScores(1, 1, "Math", 1, Score(80), Score(60), Score(90)),
		ZoneWithScores(1, 2, "Science", 4, nil, nil),
	)
}

// ScenarioB is a single snapshot with six answered zones A-F scoring
// 50, 70, 55, 90, 65 and 40.
func ScenarioB() domain.SnapshotRecords {
	names := []string{"A", "B", "C", "D", "E", "F"}
	scores := []int{50, 70, 55, 90, 65, 40}
	parts := make([]domain.SnapshotRecords, 0, len(names))
	for i, n := range names {
		parts = append(parts, ZoneWithScores(2, i+1, n, i+1, Score(scores[i])))
	}
	return Merge(2, parts...)
}

// ScenarioC returns two snapshots where zone X averages 70 over two
// questions and 50 over four questions.
func ScenarioC() []domain.SnapshotRecords {
	return []domain.SnapshotRecords{
		ZoneWithScores(1, 7, "X", 1, Score(60), Score(80)),
		ZoneWithScores(2, 7, "X", 1, Score(50), Score(50), Score(40), Score(60)),
	}
}

// ScenarioD returns snapshots 1 and 2 with data. Snapshot 3 is absent.
func ScenarioD() []domain.SnapshotRecords {
	return []domain.SnapshotRecords{
		Merge(1,
			ZoneWithScores(1, 1, "Math", 1, Score(80)),
			ZoneWithScores(1, 2, "Art", 2, Score(40)),
		),
		Merge(2,
			ZoneWithScores(2, 1, "Math", 1, Score(60)),
			ZoneWithScores(2, 2, "Art", 2, Score(90)),
		),
	}
}
