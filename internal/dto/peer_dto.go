package dto

// PeerStatusResponse summarizes one student's progress through the peer
// step: how much grading they have done and whether their own submission has
// been scored.
type PeerStatusResponse struct {
	SubmissionUUID  string `json:"submission_uuid"`
	GradedCount     int    `json:"graded_count"`
	MustGrade       int    `json:"must_grade"`
	GradingComplete bool   `json:"grading_complete"`
	ReceivedCount   int    `json:"received_count"`
	MustBeGradedBy  int    `json:"must_be_graded_by"`
	Scored          bool   `json:"scored"`
	Cancelled       bool   `json:"cancelled"`
	PointsEarned    *int   `json:"points_earned,omitempty"`
	PointsPossible  *int   `json:"points_possible,omitempty"`
}
