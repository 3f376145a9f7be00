package models

import "time"

const (
	// ScoreTypePeer marks an assessment produced by a fellow student.
	ScoreTypePeer = "PE"
	// ScoreTypeSelf marks a student's assessment of their own response.
	ScoreTypeSelf = "SE"
	// ScoreTypeStaff marks an assessment produced by course staff.
	ScoreTypeStaff = "ST"
	// ScoreTypeTraining marks a practice assessment against an instructor answer.
	ScoreTypeTraining = "TR"
)

// Assessment is one grader's completed evaluation of one submission. Rows are
// append-only: created exactly once per (submission, scorer, step) and never
// updated or deleted. Cancellation voids the workflow, not the assessment.
type Assessment struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	SubmissionUUID string           `gorm:"size:36;not null;index" json:"submission_uuid"`
	RubricID       uint             `gorm:"not null" json:"rubric_id"`
	Rubric         Rubric           `json:"rubric"`
	ScorerID       string           `gorm:"size:255;not null;index" json:"scorer_id"`
	ScoreType      string           `gorm:"size:2;not null;index" json:"score_type"`
	Feedback       string           `gorm:"type:text" json:"feedback"`
	PointsEarned   int              `gorm:"not null" json:"points_earned"`
	PointsPossible int              `gorm:"not null" json:"points_possible"`
	ScoredAt       time.Time        `gorm:"not null;index" json:"scored_at"`
	Parts          []AssessmentPart `gorm:"constraint:OnDelete:CASCADE" json:"parts"`
}

// AssessmentPart records the option a grader selected for one criterion,
// optionally with per-criterion written feedback.
type AssessmentPart struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AssessmentID uint            `gorm:"not null;index" json:"assessment_id"`
	OptionID     uint            `gorm:"not null" json:"option_id"`
	Option       CriterionOption `json:"option"`
	Feedback     string          `gorm:"type:text" json:"feedback"`
}
