package domain

import (
	"fmt"
	"math"
	"time"
)

// Report titles carried on generated reports.
const (
	StudentReportTitle   = "Student report"
	PrincipalReportTitle = "Principal Report"
)

// ZoneScore is the derived score summary of a single zone.
// Score is nil exactly when AnsweredQuestions is zero.
type ZoneScore struct {
	// ZoneID identifies the zone within its snapshot.
	ZoneID int `json:"zone_id"`

	// ZoneName is the display name of the zone.
	ZoneName string `json:"zone_name"`

	// Score is the mean of answered question scores rounded to two decimals.
	Score *float64 `json:"score"`

	// TotalQuestions counts eligible linked questions, answered or not.
	TotalQuestions int `json:"total_questions"`

	// AnsweredQuestions counts eligible linked questions with a score.
	AnsweredQuestions int `json:"answered_questions"`
}

// Scored reports whether the zone carries a score.
func (z ZoneScore) Scored() bool { return z.Score != nil }

// ScoreValue returns the score, or zero for an unscored zone.
func (z ZoneScore) ScoreValue() float64 {
	if z.Score == nil {
		return 0
	}
	return *z.Score
}

// SnapshotZoneScores pairs a snapshot with its aggregated zone scores.
type SnapshotZoneScores struct {
	SnapshotID SnapshotID
	Zones      []ZoneScore
}

// StudentReport describes the best, worst and failing zones of one snapshot.
type StudentReport struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	SnapshotID    SnapshotID  `json:"snapshot_id"`
	CreationDate  time.Time   `json:"creation_date"`
	ZonesAnalyzed int         `json:"zones_analyzed"`
	TopZones      []ZoneScore `json:"top_zones"`
	BottomZones   []ZoneScore `json:"bottom_zones"`
	LowScoreZones []ZoneScore `json:"low_score_zones"`
}

// Summary returns a one-line human readable description of the report.
func (r StudentReport) Summary() string {
	return fmt.Sprintf("Student report generated for snapshot %d with %d zones analyzed",
		r.SnapshotID, r.ZonesAnalyzed)
}

// PrincipalReport names the zone with the lowest average across snapshots.
type PrincipalReport struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	CreationDate      time.Time    `json:"creation_date"`
	LowestAverageZone ZoneScore    `json:"lowest_average_zone"`
	AnalyzedSnapshots []SnapshotID `json:"analyzed_snapshots"`
}

// Summary returns a one-line human readable description of the report.
func (r PrincipalReport) Summary() string {
	return fmt.Sprintf("Principal report generated across %d snapshots. Lowest average zone: %s (%.2f)",
		len(r.AnalyzedSnapshots), r.LowestAverageZone.ZoneName, r.LowestAverageZone.ScoreValue())
}

// RoundScore rounds a score to two decimal places, halves away from zero.
func RoundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScorePtr returns a pointer to v. Handy for building fixtures.
func ScorePtr(v float64) *float64 { return &v }
