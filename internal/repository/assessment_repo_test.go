package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

func TestCreatePeerRequiresReservation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	author := enterPool(t, db, "bob", base)
	scorer := enterPool(t, db, "alice", base.Add(time.Minute))

	assessment := models.Assessment{
		SubmissionUUID: author.SubmissionUUID,
		ScorerID:       "alice",
		ScoreType:      models.ScoreTypePeer,
		PointsEarned:   5,
		PointsPossible: 20,
		ScoredAt:       time.Now().UTC(),
	}
	err := repo.CreatePeer(context.Background(), &assessment, scorer.ID)
	require.ErrorIs(t, err, ErrItemNotReserved)
}

func TestCreatePeerMarksReservationScored(t *testing.T) {
	db := setupTestDB(t)
	assessments := NewAssessmentRepository(db)
	workflows := NewPeerWorkflowRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	author := enterPool(t, db, "bob", base)
	scorer := enterPool(t, db, "alice", base.Add(time.Minute))

	_, err := workflows.ReserveNext(context.Background(), scorer, 3)
	require.NoError(t, err)

	assessment := models.Assessment{
		SubmissionUUID: author.SubmissionUUID,
		ScorerID:       "alice",
		ScoreType:      models.ScoreTypePeer,
		PointsEarned:   5,
		PointsPossible: 20,
		ScoredAt:       time.Now().UTC(),
		Parts: []models.AssessmentPart{
			{OptionID: 1, Feedback: "solid reasoning"},
		},
	}
	require.NoError(t, assessments.CreatePeer(context.Background(), &assessment, scorer.ID))
	require.NotZero(t, assessment.ID)

	var item models.PeerWorkflowItem
	require.NoError(t, db.Where("scorer_workflow_id = ?", scorer.ID).First(&item).Error)
	require.True(t, item.Scored)
	require.NotNil(t, item.AssessmentID)
	require.Equal(t, assessment.ID, *item.AssessmentID)

	// A second assessment of the same submission by the same scorer is
	// rejected: the store is append-only, one entry per pair.
	duplicate := models.Assessment{
		SubmissionUUID: author.SubmissionUUID,
		ScorerID:       "alice",
		ScoreType:      models.ScoreTypePeer,
		PointsEarned:   7,
		PointsPossible: 20,
		ScoredAt:       time.Now().UTC(),
	}
	err = assessments.CreatePeer(context.Background(), &duplicate, scorer.ID)
	require.ErrorIs(t, err, ErrItemAlreadyScored)

	count, err := assessments.CountPeerBySubmission(context.Background(), author.SubmissionUUID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestListPeerBySubmissionOrdersByScoredAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentRepository(db)
	now := time.Now().UTC()

	author := enterPool(t, db, "bob", now.Add(-time.Hour))
	storeAssessment(t, db, author.SubmissionUUID, "carol", 8, now.Add(-10*time.Minute))
	storeAssessment(t, db, author.SubmissionUUID, "alice", 5, now.Add(-30*time.Minute))

	// Self and staff assessments never show up in the peer listing.
	other := models.Assessment{
		SubmissionUUID: author.SubmissionUUID,
		ScorerID:       "staff-1",
		ScoreType:      models.ScoreTypeStaff,
		PointsEarned:   20,
		PointsPossible: 20,
		ScoredAt:       now,
	}
	require.NoError(t, db.Create(&other).Error)

	listed, err := repo.ListPeerBySubmission(context.Background(), author.SubmissionUUID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "alice", listed[0].ScorerID)
	require.Equal(t, "carol", listed[1].ScorerID)
}
