package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/models"
	"github.com/noah-isme/peergrade-go-api/internal/scoring"
)

// reservationGraceWindow bounds how long an open, unscored reservation keeps
// counting against a submission's in-flight review total. Graders who walk
// away release the slot once the window lapses.
const reservationGraceWindow = 8 * time.Hour

// PeerWorkflowRepository owns the per-submission grading state machine:
// workflow rows, grading reservations, transition evaluation, and the final
// score write.
type PeerWorkflowRepository interface {
	GetOrCreate(ctx context.Context, submission models.Submission) (models.PeerWorkflow, error)
	GetBySubmissionUUID(ctx context.Context, submissionUUID string) (models.PeerWorkflow, error)
	GetLatestByStudentItem(ctx context.Context, item models.StudentItem) (models.PeerWorkflow, error)
	OpenItem(ctx context.Context, scorerWorkflowID uint) (models.PeerWorkflowItem, error)
	ReserveNext(ctx context.Context, scorer models.PeerWorkflow, requiredGradedBy int) (models.Submission, error)
	CountScoredByScorer(ctx context.Context, scorerWorkflowID uint) (int64, error)
	MarkGradingComplete(ctx context.Context, workflowID uint) error
	FinalizeScore(ctx context.Context, submissionUUID string, requiredGradedBy int) (models.Score, bool, error)
	Cancel(ctx context.Context, submissionUUID, cancelledBy, comments string) error
}

type peerWorkflowRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPeerWorkflowRepository instantiates the repository.
func NewPeerWorkflowRepository(db *gorm.DB) PeerWorkflowRepository {
	return &peerWorkflowRepository{db: db, now: time.Now}
}

// GetOrCreate returns the workflow tracking the given submission, creating
// it when the submission first enters the peer step. The unique index on
// submission_uuid makes concurrent creation converge on one row.
func (r *peerWorkflowRepository) GetOrCreate(ctx context.Context, submission models.Submission) (models.PeerWorkflow, error) {
	var workflow models.PeerWorkflow
	err := r.db.WithContext(ctx).
		Where("submission_uuid = ?", submission.UUID).
		First(&workflow).Error
	if err == nil {
		return workflow, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.PeerWorkflow{}, err
	}

	workflow = models.PeerWorkflow{
		StudentID:      submission.StudentID,
		CourseID:       submission.CourseID,
		ItemID:         submission.ItemID,
		SubmissionUUID: submission.UUID,
	}
	if createErr := r.db.WithContext(ctx).Create(&workflow).Error; createErr != nil {
		// Lost a creation race; the winner's row is authoritative.
		var existing models.PeerWorkflow
		if lookupErr := r.db.WithContext(ctx).
			Where("submission_uuid = ?", submission.UUID).
			First(&existing).Error; lookupErr == nil {
			return existing, nil
		}
		return models.PeerWorkflow{}, createErr
	}

	return workflow, nil
}

func (r *peerWorkflowRepository) GetBySubmissionUUID(ctx context.Context, submissionUUID string) (models.PeerWorkflow, error) {
	var workflow models.PeerWorkflow
	if err := r.db.WithContext(ctx).
		Where("submission_uuid = ?", submissionUUID).
		First(&workflow).Error; err != nil {
		return models.PeerWorkflow{}, err
	}

	return workflow, nil
}

// GetLatestByStudentItem resolves the workflow for the student's most recent
// submission on an item. Grading quotas are tracked against this workflow.
func (r *peerWorkflowRepository) GetLatestByStudentItem(ctx context.Context, item models.StudentItem) (models.PeerWorkflow, error) {
	var workflow models.PeerWorkflow
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND item_id = ? AND student_id = ?", item.CourseID, item.ItemID, item.StudentID).
		Order("created_at DESC, id DESC").
		First(&workflow).Error; err != nil {
		return models.PeerWorkflow{}, err
	}

	return workflow, nil
}

// OpenItem returns the scorer's most recent unscored reservation whose
// author is still in the grading pool, if any. A grader re-requesting work
// gets their in-progress submission back instead of a fresh one.
func (r *peerWorkflowRepository) OpenItem(ctx context.Context, scorerWorkflowID uint) (models.PeerWorkflowItem, error) {
	var item models.PeerWorkflowItem
	if err := r.db.WithContext(ctx).
		Joins("JOIN peer_workflows ON peer_workflows.id = peer_workflow_items.author_workflow_id").
		Where("peer_workflow_items.scorer_workflow_id = ?", scorerWorkflowID).
		Where("peer_workflow_items.scored = ?", false).
		Where("peer_workflows.cancelled_at IS NULL").
		Order("peer_workflow_items.started_at DESC, peer_workflow_items.id DESC").
		First(&item).Error; err != nil {
		return models.PeerWorkflowItem{}, err
	}

	return item, nil
}

// ReserveNext picks the next submission the scorer should assess and records
// the reservation in one transaction. Candidates are peers' submissions on
// the same course item, earliest-submitted first with attempt number as the
// tie-break, skipping the scorer's own work, anything they already reviewed,
// cancelled workflows, and submissions whose scored plus in-flight review
// count already meets the requirement. Counting open reservations keeps two
// concurrent graders from pushing a near-complete submission past its quota.
func (r *peerWorkflowRepository) ReserveNext(ctx context.Context, scorer models.PeerWorkflow, requiredGradedBy int) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()

		reviewed := tx.Model(&models.PeerWorkflowItem{}).
			Select("author_workflow_id").
			Where("scorer_workflow_id = ?", scorer.ID)

		inFlight := tx.Model(&models.PeerWorkflowItem{}).
			Select("count(*)").
			Where("peer_workflow_items.author_workflow_id = peer_workflows.id").
			Where("peer_workflow_items.scored = ? OR peer_workflow_items.started_at > ?",
				true, now.Add(-reservationGraceWindow))

		query := tx.Model(&models.PeerWorkflow{}).
			Select("peer_workflows.*").
			Joins("JOIN submissions ON submissions.uuid = peer_workflows.submission_uuid").
			Where("peer_workflows.course_id = ? AND peer_workflows.item_id = ?", scorer.CourseID, scorer.ItemID).
			Where("peer_workflows.student_id <> ?", scorer.StudentID).
			Where("peer_workflows.cancelled_at IS NULL").
			Where("peer_workflows.id NOT IN (?)", reviewed).
			Where("(?) < ?", inFlight, requiredGradedBy).
			Order("submissions.submitted_at ASC, submissions.attempt_number DESC")
		query = lockForUpdate(query, "peer_workflows")

		var candidate models.PeerWorkflow
		if err := query.First(&candidate).Error; err != nil {
			return err
		}

		item := models.PeerWorkflowItem{
			ScorerWorkflowID: scorer.ID,
			AuthorWorkflowID: candidate.ID,
			SubmissionUUID:   candidate.SubmissionUUID,
			StartedAt:        now,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		return tx.Where("uuid = ?", candidate.SubmissionUUID).First(&submission).Error
	})
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *peerWorkflowRepository) CountScoredByScorer(ctx context.Context, scorerWorkflowID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PeerWorkflowItem{}).
		Where("scorer_workflow_id = ? AND scored = ?", scorerWorkflowID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// MarkGradingComplete stamps grading_completed_at once; re-running it is a
// no-op.
func (r *peerWorkflowRepository) MarkGradingComplete(ctx context.Context, workflowID uint) error {
	return r.db.WithContext(ctx).Model(&models.PeerWorkflow{}).
		Where("id = ? AND grading_completed_at IS NULL", workflowID).
		Update("grading_completed_at", r.now()).Error
}

// FinalizeScore re-evaluates the SCORED transition for the submission's
// author. Inside one transaction it locks the workflow row, counts the peer
// assessments from the same consistent snapshot, and writes the aggregated
// score if the threshold is met and no score exists yet for the student-item
// pair. Running it twice with the same inputs never double-scores: the
// second run sees completed_at set, or the existing score row, and returns
// without writing.
func (r *peerWorkflowRepository) FinalizeScore(ctx context.Context, submissionUUID string, requiredGradedBy int) (models.Score, bool, error) {
	var score models.Score
	finalized := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workflowQuery := tx.Where("submission_uuid = ?", submissionUUID)
		workflowQuery = lockForUpdate(workflowQuery, "peer_workflows")

		var workflow models.PeerWorkflow
		if err := workflowQuery.First(&workflow).Error; err != nil {
			return err
		}

		if workflow.IsCancelled() || workflow.IsScored() {
			return nil
		}

		var assessments []models.Assessment
		if err := tx.
			Where("submission_uuid = ? AND score_type = ?", submissionUUID, models.ScoreTypePeer).
			Order("scored_at ASC, id ASC").
			Find(&assessments).Error; err != nil {
			return err
		}

		if len(assessments) < requiredGradedBy {
			return nil
		}

		var existing int64
		if err := tx.Model(&models.Score{}).
			Where("course_id = ? AND item_id = ? AND student_id = ?",
				workflow.CourseID, workflow.ItemID, workflow.StudentID).
			Count(&existing).Error; err != nil {
			return err
		}

		if existing == 0 {
			points := make([]int, 0, len(assessments))
			for _, assessment := range assessments {
				points = append(points, assessment.PointsEarned)
			}

			score = models.Score{
				StudentID:      workflow.StudentID,
				CourseID:       workflow.CourseID,
				ItemID:         workflow.ItemID,
				SubmissionUUID: submissionUUID,
				PointsEarned:   scoring.AggregatePeerScores(points),
				// points_possible is invariant across assessments on one
				// submission: they all share the same rubric content.
				PointsPossible: assessments[0].PointsPossible,
			}
			if err := tx.Create(&score).Error; err != nil {
				return err
			}
			finalized = true
		}

		return tx.Model(&models.PeerWorkflow{}).
			Where("id = ?", workflow.ID).
			Update("completed_at", r.now()).Error
	})
	if err != nil {
		return models.Score{}, false, err
	}

	return score, finalized, nil
}

// Cancel removes a submission from the grading pool, recording who did it
// and why. Cancelling an already-cancelled workflow is a no-op. Grading
// history is preserved; only the workflow is voided.
func (r *peerWorkflowRepository) Cancel(ctx context.Context, submissionUUID, cancelledBy, comments string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workflowQuery := tx.Where("submission_uuid = ?", submissionUUID)
		workflowQuery = lockForUpdate(workflowQuery, "peer_workflows")

		var workflow models.PeerWorkflow
		if err := workflowQuery.First(&workflow).Error; err != nil {
			return err
		}

		if workflow.IsCancelled() {
			return nil
		}

		cancellation := models.PeerWorkflowCancellation{
			WorkflowID:  workflow.ID,
			CancelledBy: cancelledBy,
			Comments:    comments,
		}
		if err := tx.Create(&cancellation).Error; err != nil {
			return err
		}

		return tx.Model(&models.PeerWorkflow{}).
			Where("id = ?", workflow.ID).
			Update("cancelled_at", r.now()).Error
	})
}
