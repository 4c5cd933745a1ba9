package domain

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Record limits enforced at the data-access edge.
const (
	// MaxScore is the highest score a question can carry.
	MaxScore = 100
	// MaxQuestionTextLength bounds question text in characters.
	MaxQuestionTextLength = 1000
	// MaxSnapshotID is the largest identifier the record stores can hold.
	MaxSnapshotID = math.MaxInt32
)

// validate is the package-level validator for record and report structs.
var validate = validator.New()

// SnapshotID identifies a versioned collection of zones, questions and the
// links between them. It is the unit of analysis for a single report.
type SnapshotID int

// Validate reports ErrInvalidInput when the identifier is negative or
// above MaxSnapshotID.
func (id SnapshotID) Validate() error {
	verr := NewValidationError("snapshot")
	switch {
	case id < 0:
		verr.AddError(fmt.Sprintf("snapshot id must be non-negative, got %d", id))
	case id > MaxSnapshotID:
		verr.AddError(fmt.Sprintf("snapshot id must not exceed %d, got %d", MaxSnapshotID, id))
	default:
		return nil
	}
	return verr
}

// Question is a single scored item within a snapshot.
// A nil Score means the question has not been answered.
type Question struct {
	SnapshotID SnapshotID `json:"snapshot_id" yaml:"snapshot_id" validate:"min=0,max=2147483647"`
	QuestionID int        `json:"question_id" yaml:"question_id" validate:"gt=0"`
	Text       string     `json:"question_text" yaml:"text" validate:"required,max=1000"`
	Score      *int       `json:"score" yaml:"score" validate:"omitempty,min=0,max=100"`
	IsRelevant bool       `json:"is_relevant" yaml:"is_relevant"`
	TestID     int        `json:"test_id" yaml:"test_id" validate:"gt=0"`
}

// Answered reports whether the question carries a score.
func (q Question) Answered() bool { return q.Score != nil }

// Validate checks the record against its domain constraints.
func (q Question) Validate() error {
	return validateRecord("question", q)
}

// Zone groups questions that belong to the same subject area.
type Zone struct {
	SnapshotID SnapshotID `json:"snapshot_id" yaml:"snapshot_id" validate:"min=0,max=2147483647"`
	ZoneID     int        `json:"zone_id" yaml:"zone_id" validate:"gt=0"`
	Name       string     `json:"zone_name" yaml:"name" validate:"required"`
	IsRelevant bool       `json:"is_relevant" yaml:"is_relevant"`
}

// Validate checks the record against its domain constraints.
func (z Zone) Validate() error {
	return validateRecord("zone", z)
}

// ZoneMembership links a question to a zone inside one snapshot.
type ZoneMembership struct {
	SnapshotID SnapshotID `json:"snapshot_id" yaml:"snapshot_id" validate:"min=0,max=2147483647"`
	ZoneID     int        `json:"zone_id" yaml:"zone_id" validate:"gt=0"`
	QuestionID int        `json:"question_id" yaml:"question_id" validate:"gt=0"`
}

// Validate checks the record against its domain constraints.
func (m ZoneMembership) Validate() error {
	return validateRecord("zone membership", m)
}

// SnapshotRecords bundles the raw records fetched for one snapshot.
type SnapshotRecords struct {
	SnapshotID  SnapshotID
	Questions   []Question
	Zones       []Zone
	Memberships []ZoneMembership
}

// validateRecord runs struct validation and folds field failures into a
// single ValidationError for the named entity.
func validateRecord(entity string, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	verr := NewValidationError(entity)
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.AddError(err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.AddError(fmt.Sprintf("%s failed %s=%s (value %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return verr
}
