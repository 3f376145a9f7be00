package dto

import (
	"github.com/noah-isme/peergrade-go-api/internal/models"
)

// RubricDefinition is the nested rubric structure supplied by the authoring
// layer at assessment-creation time. The engine never originates rubric
// content; it only canonicalizes, hashes, and stores what arrives here.
type RubricDefinition struct {
	Criteria []CriterionDefinition `json:"criteria" validate:"required,min=1,dive"`
}

// CriterionDefinition describes one scored dimension of a rubric.
type CriterionDefinition struct {
	Name             string             `json:"name" validate:"required"`
	Prompt           string             `json:"prompt"`
	Order            int                `json:"order_num"`
	FeedbackRequired bool               `json:"feedback_required"`
	Options          []OptionDefinition `json:"options" validate:"dive"`
}

// OptionDefinition describes one selectable point value within a criterion.
type OptionDefinition struct {
	Name        string `json:"name" validate:"required"`
	Points      uint   `json:"points"`
	Explanation string `json:"explanation"`
	Order       int    `json:"order_num"`
}

// RubricResponse serializes a stored rubric tree.
type RubricResponse struct {
	ID          uint                `json:"id"`
	ContentHash string              `json:"content_hash"`
	Criteria    []CriterionResponse `json:"criteria"`
}

// CriterionResponse serializes one stored criterion.
type CriterionResponse struct {
	Name     string           `json:"name"`
	OrderNum int              `json:"order_num"`
	Prompt   string           `json:"prompt"`
	Options  []OptionResponse `json:"options"`
}

// OptionResponse serializes one stored criterion option.
type OptionResponse struct {
	Name        string `json:"name"`
	OrderNum    int    `json:"order_num"`
	Points      uint   `json:"points"`
	Explanation string `json:"explanation"`
}

// NewRubricResponse converts a Rubric model into a DTO.
func NewRubricResponse(model models.Rubric) RubricResponse {
	criteria := make([]CriterionResponse, 0, len(model.Criteria))
	for _, criterion := range model.Criteria {
		options := make([]OptionResponse, 0, len(criterion.Options))
		for _, option := range criterion.Options {
			options = append(options, OptionResponse{
				Name:        option.Name,
				OrderNum:    option.OrderNum,
				Points:      option.Points,
				Explanation: option.Explanation,
			})
		}
		criteria = append(criteria, CriterionResponse{
			Name:     criterion.Name,
			OrderNum: criterion.OrderNum,
			Prompt:   criterion.Prompt,
			Options:  options,
		})
	}

	return RubricResponse{
		ID:          model.ID,
		ContentHash: model.ContentHash,
		Criteria:    criteria,
	}
}
