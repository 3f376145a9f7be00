package models

import "time"

// PeerWorkflow tracks one submitting student's progress through the peer
// step: how their own submission is being graded and how much grading they
// have done for others. The two are independent, since a student may finish
// grading before or after receiving their own score, so completion is
// recorded with two separate timestamps.
type PeerWorkflow struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	StudentID          string     `gorm:"size:255;not null;index:idx_workflow_student_item,priority:3" json:"student_id"`
	CourseID           string     `gorm:"size:255;not null;index:idx_workflow_student_item,priority:1" json:"course_id"`
	ItemID             string     `gorm:"size:255;not null;index:idx_workflow_student_item,priority:2" json:"item_id"`
	SubmissionUUID     string     `gorm:"size:36;not null;uniqueIndex" json:"submission_uuid"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `gorm:"index" json:"completed_at"`
	GradingCompletedAt *time.Time `json:"grading_completed_at"`
	CancelledAt        *time.Time `gorm:"index" json:"cancelled_at"`
}

// StudentItem returns the addressing triple for this workflow.
func (w PeerWorkflow) StudentItem() StudentItem {
	return StudentItem{StudentID: w.StudentID, CourseID: w.CourseID, ItemID: w.ItemID}
}

// IsCancelled reports whether the workflow has been removed from the grading
// pool by staff.
func (w PeerWorkflow) IsCancelled() bool {
	return w.CancelledAt != nil
}

// IsScored reports whether the student's own submission has received its
// final peer score.
func (w PeerWorkflow) IsScored() bool {
	return w.CompletedAt != nil
}

// PeerWorkflowItem is one grading assignment: a submission handed to a
// grader. The row is created as an open reservation at selection time and
// flipped to scored when the grader's assessment lands. A grader never
// reviews the same submission twice, enforced by the unique
// (scorer_workflow_id, submission_uuid) index. Items are never deleted;
// cancellation is recorded on the workflow, not by erasing grading history.
type PeerWorkflowItem struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	ScorerWorkflowID uint         `gorm:"not null;uniqueIndex:idx_scorer_submission,priority:1" json:"scorer_workflow_id"`
	ScorerWorkflow   PeerWorkflow `gorm:"foreignKey:ScorerWorkflowID" json:"-"`
	AuthorWorkflowID uint         `gorm:"not null;index" json:"author_workflow_id"`
	AuthorWorkflow   PeerWorkflow `gorm:"foreignKey:AuthorWorkflowID" json:"-"`
	SubmissionUUID   string       `gorm:"size:36;not null;uniqueIndex:idx_scorer_submission,priority:2" json:"submission_uuid"`
	StartedAt        time.Time    `gorm:"not null" json:"started_at"`
	AssessmentID     *uint        `json:"assessment_id"`
	Scored           bool         `gorm:"not null;default:false" json:"scored"`
}

// PeerWorkflowCancellation is the audit record written when staff remove a
// submission from the grading pool.
type PeerWorkflowCancellation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WorkflowID  uint      `gorm:"not null;index" json:"workflow_id"`
	CancelledBy string    `gorm:"size:255;not null" json:"cancelled_by"`
	Comments    string    `gorm:"type:text" json:"comments"`
	CreatedAt   time.Time `json:"created_at"`
}
