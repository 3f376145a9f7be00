package dto

import (
	"time"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

// AssessmentCreateRequest is the payload a grader submits after reviewing a
// peer's response. OptionsSelected maps criterion name to the chosen option
// name; CriterionFeedback maps criterion name to optional written feedback.
type AssessmentCreateRequest struct {
	SubmissionUUID    string            `json:"submission_uuid" validate:"required,uuid4"`
	ScorerID          string            `json:"scorer_id" validate:"required"`
	OptionsSelected   map[string]string `json:"options_selected" validate:"required,min=1"`
	CriterionFeedback map[string]string `json:"criterion_feedback"`
	OverallFeedback   string            `json:"overall_feedback"`
	Rubric            RubricDefinition  `json:"rubric" validate:"required"`
	MustGrade         *int              `json:"must_grade" validate:"omitempty,gt=0"`
	MustBeGradedBy    *int              `json:"must_be_graded_by" validate:"omitempty,gt=0"`
}

// AssessmentResponse serializes one completed assessment.
type AssessmentResponse struct {
	ID             uint                     `json:"id"`
	SubmissionUUID string                   `json:"submission_uuid"`
	ScorerID       string                   `json:"scorer_id"`
	ScoreType      string                   `json:"score_type"`
	Feedback       string                   `json:"feedback"`
	PointsEarned   int                      `json:"points_earned"`
	PointsPossible int                      `json:"points_possible"`
	ScoredAt       time.Time                `json:"scored_at"`
	Parts          []AssessmentPartResponse `json:"parts"`
}

// AssessmentPartResponse serializes the option selected for one criterion.
type AssessmentPartResponse struct {
	OptionName string `json:"option_name"`
	Points     uint   `json:"points"`
	Feedback   string `json:"feedback"`
}

// NewAssessmentResponse converts an Assessment model into a DTO.
func NewAssessmentResponse(model models.Assessment) AssessmentResponse {
	parts := make([]AssessmentPartResponse, 0, len(model.Parts))
	for _, part := range model.Parts {
		parts = append(parts, AssessmentPartResponse{
			OptionName: part.Option.Name,
			Points:     part.Option.Points,
			Feedback:   part.Feedback,
		})
	}

	return AssessmentResponse{
		ID:             model.ID,
		SubmissionUUID: model.SubmissionUUID,
		ScorerID:       model.ScorerID,
		ScoreType:      model.ScoreType,
		Feedback:       model.Feedback,
		PointsEarned:   model.PointsEarned,
		PointsPossible: model.PointsPossible,
		ScoredAt:       model.ScoredAt,
		Parts:          parts,
	}
}

// NewAssessmentResponseSlice converts assessment models into DTOs.
func NewAssessmentResponseSlice(assessments []models.Assessment) []AssessmentResponse {
	responses := make([]AssessmentResponse, 0, len(assessments))
	for _, assessment := range assessments {
		responses = append(responses, NewAssessmentResponse(assessment))
	}

	return responses
}
