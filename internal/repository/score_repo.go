package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

// ScoreRepository defines read operations against the final score store.
// Score rows are written by PeerWorkflowRepository.FinalizeScore only.
type ScoreRepository interface {
	GetByStudentItem(ctx context.Context, item models.StudentItem) (models.Score, error)
	GetBySubmission(ctx context.Context, submissionUUID string) (models.Score, error)
}

type scoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository instantiates the repository.
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) GetByStudentItem(ctx context.Context, item models.StudentItem) (models.Score, error) {
	var score models.Score
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND item_id = ? AND student_id = ?", item.CourseID, item.ItemID, item.StudentID).
		First(&score).Error; err != nil {
		return models.Score{}, err
	}

	return score, nil
}

func (r *scoreRepository) GetBySubmission(ctx context.Context, submissionUUID string) (models.Score, error) {
	var score models.Score
	if err := r.db.WithContext(ctx).
		Where("submission_uuid = ?", submissionUUID).
		First(&score).Error; err != nil {
		return models.Score{}, err
	}

	return score, nil
}
