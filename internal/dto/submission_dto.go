package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

// SubmissionCreateRequest is the payload for appending a response to the
// ledger and entering it into the peer step.
type SubmissionCreateRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	CourseID  string          `json:"course_id" validate:"required"`
	ItemID    string          `json:"item_id" validate:"required"`
	Answer    json.RawMessage `json:"answer" validate:"required"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	UUID          string          `json:"uuid"`
	StudentID     string          `json:"student_id"`
	CourseID      string          `json:"course_id"`
	ItemID        string          `json:"item_id"`
	Answer        json.RawMessage `json:"answer"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	AttemptNumber int             `json:"attempt_number"`
}

// ScoreResponse serializes a final aggregated score.
type ScoreResponse struct {
	StudentID      string    `json:"student_id"`
	CourseID       string    `json:"course_id"`
	ItemID         string    `json:"item_id"`
	SubmissionUUID string    `json:"submission_uuid"`
	PointsEarned   int       `json:"points_earned"`
	PointsPossible int       `json:"points_possible"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		UUID:          model.UUID,
		StudentID:     model.StudentID,
		CourseID:      model.CourseID,
		ItemID:        model.ItemID,
		Answer:        json.RawMessage(model.Answer),
		SubmittedAt:   model.SubmittedAt,
		AttemptNumber: model.AttemptNumber,
	}
}

// NewScoreResponse converts a Score model into a DTO.
func NewScoreResponse(model models.Score) ScoreResponse {
	return ScoreResponse{
		StudentID:      model.StudentID,
		CourseID:       model.CourseID,
		ItemID:         model.ItemID,
		SubmissionUUID: model.SubmissionUUID,
		PointsEarned:   model.PointsEarned,
		PointsPossible: model.PointsPossible,
		CreatedAt:      model.CreatedAt,
	}
}
