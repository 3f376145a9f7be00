package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Rubric{},
		&models.Criterion{},
		&models.CriterionOption{},
		&models.Submission{},
		&models.Assessment{},
		&models.AssessmentPart{},
		&models.PeerWorkflow{},
		&models.PeerWorkflowItem{},
		&models.PeerWorkflowCancellation{},
		&models.Score{},
	))
	return db
}

// enterPool appends a submission for the student and creates its workflow.
func enterPool(t *testing.T, db *gorm.DB, studentID string, submittedAt time.Time) models.PeerWorkflow {
	t.Helper()

	submission := models.Submission{
		UUID:          uuid.NewString(),
		StudentID:     studentID,
		CourseID:      "course-1",
		ItemID:        "item-1",
		Answer:        datatypes.JSON([]byte(`{"text":"answer"}`)),
		SubmittedAt:   submittedAt,
		AttemptNumber: 1,
	}
	require.NoError(t, db.Create(&submission).Error)

	workflows := NewPeerWorkflowRepository(db)
	workflow, err := workflows.GetOrCreate(context.Background(), submission)
	require.NoError(t, err)
	return workflow
}

func storeAssessment(t *testing.T, db *gorm.DB, submissionUUID, scorerID string, pointsEarned int, scoredAt time.Time) models.Assessment {
	t.Helper()

	assessment := models.Assessment{
		SubmissionUUID: submissionUUID,
		ScorerID:       scorerID,
		ScoreType:      models.ScoreTypePeer,
		PointsEarned:   pointsEarned,
		PointsPossible: 20,
		ScoredAt:       scoredAt,
	}
	require.NoError(t, db.Create(&assessment).Error)
	return assessment
}
