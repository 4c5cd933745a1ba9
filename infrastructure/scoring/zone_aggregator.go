package scoring

import (
	"slices"

	"github.com/fsscore/zonescore/internal/domain"
)

// AggregateZoneScores computes one ZoneScore per relevant zone of a snapshot.
//
// Eligibility rules:
//   - Only zones of snapshotID flagged relevant appear in the result.
//   - Only relevant questions of snapshotID count toward a zone; an
//     irrelevant question is treated as if it were not linked.
//   - A membership naming an unknown zone or question is ignored, and a
//     question linked to the same zone twice counts once.
//
// Each zone reports the number of eligible linked questions, how many of
// them are answered, and the mean of the answered scores rounded to two
// decimals. A zone without answered questions keeps a nil Score; a zone
// without any eligible question is still returned with zero counts.
//
// The result is sorted by zone name (case-folded, then exact, then id) and
// is never nil. The function does not modify its inputs.
func AggregateZoneScores(
	snapshotID domain.SnapshotID,
	zones []domain.Zone,
	memberships []domain.ZoneMembership,
	questions []domain.Question,
) []domain.ZoneScore {
	eligible := make(map[int]domain.Question, len(questions))
	for _, q := range questions {
		if q.SnapshotID != snapshotID || !q.IsRelevant {
			continue
		}
		eligible[q.QuestionID] = q
	}

	type tally struct {
		zone     domain.Zone
		seen     map[int]struct{}
		sum      int
		answered int
	}

	tallies := make(map[int]*tally, len(zones))
	order := make([]int, 0, len(zones))
	for _, z := range zones {
		if z.SnapshotID != snapshotID || !z.IsRelevant {
			continue
		}
		if _, dup := tallies[z.ZoneID]; dup {
			continue
		}
		tallies[z.ZoneID] = &tally{zone: z, seen: make(map[int]struct{})}
		order = append(order, z.ZoneID)
	}

	for _, m := range memberships {
		if m.SnapshotID != snapshotID {
			continue
		}
		t, ok := tallies[m.ZoneID]
		if !ok {
			continue
		}
		q, ok := eligible[m.QuestionID]
		if !ok {
			continue
		}
		if _, counted := t.seen[q.QuestionID]; counted {
			continue
		}
		t.seen[q.QuestionID] = struct{}{}
		if q.Score != nil {
			t.sum += *q.Score
			t.answered++
		}
	}

	result := make([]domain.ZoneScore, 0, len(order))
	for _, id := range order {
		t := tallies[id]
		zs := domain.ZoneScore{
			ZoneID:            t.zone.ZoneID,
			ZoneName:          t.zone.Name,
			TotalQuestions:    len(t.seen),
			AnsweredQuestions: t.answered,
		}
		// Score stays nil exactly when there is nothing to divide by.
		if t.answered > 0 {
			avg := domain.RoundScore(float64(t.sum) / float64(t.answered))
			zs.Score = &avg
		}
		result = append(result, zs)
	}

	slices.SortStableFunc(result, compareZoneNames)
	return result
}
