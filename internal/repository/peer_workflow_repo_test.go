package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

func TestGetOrCreateReturnsExistingWorkflow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)

	workflow := enterPool(t, db, "alice", time.Now().UTC())

	var submission models.Submission
	require.NoError(t, db.Where("uuid = ?", workflow.SubmissionUUID).First(&submission).Error)

	again, err := repo.GetOrCreate(context.Background(), submission)
	require.NoError(t, err)
	require.Equal(t, workflow.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.PeerWorkflow{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestReserveNextPicksEarliestSubmission(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	enterPool(t, db, "bob", base.Add(10*time.Minute))
	earliest := enterPool(t, db, "carol", base)
	enterPool(t, db, "dave", base.Add(20*time.Minute))
	scorer := enterPool(t, db, "alice", base.Add(30*time.Minute))

	submission, err := repo.ReserveNext(context.Background(), scorer, 3)
	require.NoError(t, err)
	require.Equal(t, earliest.SubmissionUUID, submission.UUID)

	var item models.PeerWorkflowItem
	require.NoError(t, db.Where("scorer_workflow_id = ?", scorer.ID).First(&item).Error)
	require.Equal(t, earliest.ID, item.AuthorWorkflowID)
	require.False(t, item.Scored)
}

func TestReserveNextBreaksTiesOnAttemptNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	submittedAt := time.Now().UTC().Add(-time.Hour)

	first := enterPool(t, db, "bob", submittedAt)
	second := enterPool(t, db, "carol", submittedAt)
	require.NoError(t, db.Model(&models.Submission{}).
		Where("uuid = ?", second.SubmissionUUID).
		Update("attempt_number", 2).Error)
	scorer := enterPool(t, db, "alice", submittedAt.Add(time.Minute))

	submission, err := repo.ReserveNext(context.Background(), scorer, 3)
	require.NoError(t, err)
	require.Equal(t, second.SubmissionUUID, submission.UUID, "higher attempt number wins the tie")
	require.NotEqual(t, first.SubmissionUUID, submission.UUID)
}

func TestReserveNextNeverReturnsOwnSubmission(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)

	scorer := enterPool(t, db, "alice", time.Now().UTC().Add(-time.Hour))

	_, err := repo.ReserveNext(context.Background(), scorer, 3)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReserveNextSkipsAlreadyReviewed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	author := enterPool(t, db, "bob", base)
	scorer := enterPool(t, db, "alice", base.Add(time.Minute))

	first, err := repo.ReserveNext(context.Background(), scorer, 3)
	require.NoError(t, err)
	require.Equal(t, author.SubmissionUUID, first.UUID)

	// Simulate the open reservation being scored; the author must not come
	// back around.
	require.NoError(t, db.Model(&models.PeerWorkflowItem{}).
		Where("scorer_workflow_id = ?", scorer.ID).
		Update("scored", true).Error)

	_, err = repo.ReserveNext(context.Background(), scorer, 3)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReserveNextSkipsCancelledWorkflows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	cancelled := enterPool(t, db, "bob", base)
	require.NoError(t, repo.Cancel(context.Background(), cancelled.SubmissionUUID, "staff-1", "plagiarism"))
	scorer := enterPool(t, db, "alice", base.Add(time.Minute))

	_, err := repo.ReserveNext(context.Background(), scorer, 3)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReserveNextCountsOpenReservationsTowardRequirement(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	enterPool(t, db, "bob", base)
	firstScorer := enterPool(t, db, "carol", base.Add(time.Minute))
	secondScorer := enterPool(t, db, "alice", base.Add(2*time.Minute))

	_, err := repo.ReserveNext(context.Background(), firstScorer, 1)
	require.NoError(t, err)

	// bob's submission only needs one review and carol already holds an
	// active reservation for it; alice gets nothing.
	_, err = repo.ReserveNext(context.Background(), secondScorer, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReserveNextIgnoresExpiredReservations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	base := time.Now().UTC().Add(-24 * time.Hour)

	author := enterPool(t, db, "bob", base)
	firstScorer := enterPool(t, db, "carol", base.Add(time.Minute))
	secondScorer := enterPool(t, db, "alice", base.Add(2*time.Minute))

	// carol reserved bob's submission a day ago and never finished; the
	// stale hold no longer blocks the slot.
	stale := models.PeerWorkflowItem{
		ScorerWorkflowID: firstScorer.ID,
		AuthorWorkflowID: author.ID,
		SubmissionUUID:   author.SubmissionUUID,
		StartedAt:        base.Add(time.Minute),
	}
	require.NoError(t, db.Create(&stale).Error)

	submission, err := repo.ReserveNext(context.Background(), secondScorer, 1)
	require.NoError(t, err)
	require.Equal(t, author.SubmissionUUID, submission.UUID)
}

func TestCountScoredByScorerIgnoresOpenReservations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	author := enterPool(t, db, "bob", base)
	other := enterPool(t, db, "carol", base.Add(time.Minute))
	scorer := enterPool(t, db, "alice", base.Add(2*time.Minute))

	require.NoError(t, db.Create(&models.PeerWorkflowItem{
		ScorerWorkflowID: scorer.ID,
		AuthorWorkflowID: author.ID,
		SubmissionUUID:   author.SubmissionUUID,
		StartedAt:        base,
		Scored:           true,
	}).Error)
	require.NoError(t, db.Create(&models.PeerWorkflowItem{
		ScorerWorkflowID: scorer.ID,
		AuthorWorkflowID: other.ID,
		SubmissionUUID:   other.SubmissionUUID,
		StartedAt:        base,
	}).Error)

	count, err := repo.CountScoredByScorer(context.Background(), scorer.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestMarkGradingCompleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)

	workflow := enterPool(t, db, "alice", time.Now().UTC())

	require.NoError(t, repo.MarkGradingComplete(context.Background(), workflow.ID))

	var stamped models.PeerWorkflow
	require.NoError(t, db.First(&stamped, workflow.ID).Error)
	require.NotNil(t, stamped.GradingCompletedAt)
	firstStamp := *stamped.GradingCompletedAt

	require.NoError(t, repo.MarkGradingComplete(context.Background(), workflow.ID))
	require.NoError(t, db.First(&stamped, workflow.ID).Error)
	require.Equal(t, firstStamp.Unix(), stamped.GradingCompletedAt.Unix())
}

func TestFinalizeScoreComputesMedianOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	now := time.Now().UTC()

	workflow := enterPool(t, db, "alice", now.Add(-time.Hour))
	storeAssessment(t, db, workflow.SubmissionUUID, "bob", 5, now.Add(-30*time.Minute))
	storeAssessment(t, db, workflow.SubmissionUUID, "carol", 6, now.Add(-20*time.Minute))
	storeAssessment(t, db, workflow.SubmissionUUID, "dave", 12, now.Add(-10*time.Minute))

	score, finalized, err := repo.FinalizeScore(context.Background(), workflow.SubmissionUUID, 3)
	require.NoError(t, err)
	require.True(t, finalized)
	require.Equal(t, 6, score.PointsEarned)
	require.Equal(t, 20, score.PointsPossible)
	require.Equal(t, "alice", score.StudentID)

	// Re-running is a no-op: the workflow is already scored.
	_, finalized, err = repo.FinalizeScore(context.Background(), workflow.SubmissionUUID, 3)
	require.NoError(t, err)
	require.False(t, finalized)

	var count int64
	require.NoError(t, db.Model(&models.Score{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestFinalizeScoreBelowThresholdDoesNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	now := time.Now().UTC()

	workflow := enterPool(t, db, "alice", now.Add(-time.Hour))
	storeAssessment(t, db, workflow.SubmissionUUID, "bob", 5, now)

	_, finalized, err := repo.FinalizeScore(context.Background(), workflow.SubmissionUUID, 3)
	require.NoError(t, err)
	require.False(t, finalized)

	var reloaded models.PeerWorkflow
	require.NoError(t, db.First(&reloaded, workflow.ID).Error)
	require.Nil(t, reloaded.CompletedAt)
}

func TestFinalizeScoreSkipsCancelledWorkflows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)
	now := time.Now().UTC()

	workflow := enterPool(t, db, "alice", now.Add(-time.Hour))
	storeAssessment(t, db, workflow.SubmissionUUID, "bob", 5, now)
	require.NoError(t, repo.Cancel(context.Background(), workflow.SubmissionUUID, "staff-1", "off topic"))

	_, finalized, err := repo.FinalizeScore(context.Background(), workflow.SubmissionUUID, 1)
	require.NoError(t, err)
	require.False(t, finalized)

	var count int64
	require.NoError(t, db.Model(&models.Score{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCancelRecordsAuditTrailOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)

	workflow := enterPool(t, db, "alice", time.Now().UTC())

	require.NoError(t, repo.Cancel(context.Background(), workflow.SubmissionUUID, "staff-1", "plagiarism"))
	require.NoError(t, repo.Cancel(context.Background(), workflow.SubmissionUUID, "staff-2", "second attempt"))

	var cancellations []models.PeerWorkflowCancellation
	require.NoError(t, db.Find(&cancellations).Error)
	require.Len(t, cancellations, 1)
	require.Equal(t, "staff-1", cancellations[0].CancelledBy)
	require.Equal(t, "plagiarism", cancellations[0].Comments)

	var reloaded models.PeerWorkflow
	require.NoError(t, db.First(&reloaded, workflow.ID).Error)
	require.True(t, reloaded.IsCancelled())
}

func TestCancelUnknownWorkflowReturnsNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPeerWorkflowRepository(db)

	err := repo.Cancel(context.Background(), "missing-uuid", "staff-1", "cleanup")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
