package dto

// WorkflowCancelRequest is the payload for removing a submission from the
// grading pool.
type WorkflowCancelRequest struct {
	CancelledBy string `json:"cancelled_by"`
	Comments    string `json:"comments" validate:"required"`
}
