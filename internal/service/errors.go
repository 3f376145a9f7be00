package service

import "github.com/noah-isme/peergrade-go-api/internal/apperr"

// Workflow-state sentinels shared across the peer assessment services. All
// are expected, recoverable outcomes for the caller, not failures.
var (
	// ErrNoSubmissionsAvailable means the grading pool holds nothing the
	// requester can assess right now; the UI should re-poll later.
	ErrNoSubmissionsAvailable = &apperr.WorkflowError{Msg: "no submissions available"}

	// ErrScorerNotInPool means the requester has not submitted their own
	// response for this item, so they cannot grade peers yet.
	ErrScorerNotInPool = &apperr.WorkflowError{Msg: "scorer has not submitted a response for this item"}

	// ErrWorkflowCancelled means the target submission was removed from the
	// grading pool by staff.
	ErrWorkflowCancelled = &apperr.WorkflowError{Msg: "submission has been removed from the grading pool"}

	// ErrDuplicateAssessment means the scorer already assessed this
	// submission; assessments are append-only and created at most once per
	// (scorer, submission) pair.
	ErrDuplicateAssessment = &apperr.WorkflowError{Msg: "submission already assessed by this scorer"}

	// ErrNotReserved means the scorer was never handed this submission via
	// the selection endpoint.
	ErrNotReserved = &apperr.WorkflowError{Msg: "submission has not been assigned to this scorer"}

	// ErrSubmissionMissing means no submission or workflow exists for the
	// referenced identifier.
	ErrSubmissionMissing = &apperr.WorkflowError{Msg: "submission not found"}

	// ErrScoreNotRecorded means the submission has not yet crossed its
	// required peer-assessment threshold.
	ErrScoreNotRecorded = &apperr.WorkflowError{Msg: "no score recorded for submission"}
)
