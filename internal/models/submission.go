package models

import (
	"time"

	"gorm.io/datatypes"
)

// StudentItem identifies one student working on one question in one course.
// It is the addressing unit for workflows and scores.
type StudentItem struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
}

// Submission is one entry in the append-only response ledger. Submissions are
// referenced by UUID everywhere else in the engine and never mutated.
type Submission struct {
	UUID          string         `gorm:"primaryKey;size:36" json:"uuid"`
	StudentID     string         `gorm:"size:255;not null;index:idx_submission_student_item,priority:3" json:"student_id"`
	CourseID      string         `gorm:"size:255;not null;index:idx_submission_student_item,priority:1" json:"course_id"`
	ItemID        string         `gorm:"size:255;not null;index:idx_submission_student_item,priority:2" json:"item_id"`
	Answer        datatypes.JSON `gorm:"type:json" json:"answer"`
	SubmittedAt   time.Time      `gorm:"not null;index" json:"submitted_at"`
	AttemptNumber int            `gorm:"not null;default:1" json:"attempt_number"`
	CreatedAt     time.Time      `json:"created_at"`
}

// StudentItem returns the addressing triple for this submission.
func (s Submission) StudentItem() StudentItem {
	return StudentItem{StudentID: s.StudentID, CourseID: s.CourseID, ItemID: s.ItemID}
}
