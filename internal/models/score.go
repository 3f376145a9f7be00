package models

import "time"

// Score is the final grade recorded for a student-item pair once their
// submission crosses the required peer-assessment threshold. The unique index
// on the student-item columns is the last line of defence against double
// scoring under concurrent assessment writes.
type Score struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      string    `gorm:"size:255;not null;uniqueIndex:idx_score_student_item,priority:3" json:"student_id"`
	CourseID       string    `gorm:"size:255;not null;uniqueIndex:idx_score_student_item,priority:1" json:"course_id"`
	ItemID         string    `gorm:"size:255;not null;uniqueIndex:idx_score_student_item,priority:2" json:"item_id"`
	SubmissionUUID string    `gorm:"size:36;not null;index" json:"submission_uuid"`
	PointsEarned   int       `gorm:"not null" json:"points_earned"`
	PointsPossible int       `gorm:"not null" json:"points_possible"`
	CreatedAt      time.Time `json:"created_at"`
}

// StudentItem returns the addressing triple the score was recorded for.
func (s Score) StudentItem() StudentItem {
	return StudentItem{StudentID: s.StudentID, CourseID: s.CourseID, ItemID: s.ItemID}
}
