package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

// ErrItemNotReserved indicates the scorer was never handed the submission
// they are trying to assess.
var ErrItemNotReserved = errors.New("submission not reserved by scorer")

// ErrItemAlreadyScored indicates the scorer has already assessed this
// submission. Assessments are append-only, so a second one is rejected.
var ErrItemAlreadyScored = errors.New("submission already scored by scorer")

// AssessmentRepository defines data operations for the append-only
// assessment store.
type AssessmentRepository interface {
	CreatePeer(ctx context.Context, assessment *models.Assessment, scorerWorkflowID uint) error
	ListPeerBySubmission(ctx context.Context, submissionUUID string) ([]models.Assessment, error)
	CountPeerBySubmission(ctx context.Context, submissionUUID string) (int64, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository instantiates the repository.
func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

// CreatePeer persists a peer assessment with its parts and flips the
// scorer's open reservation to scored, all in one transaction. A failure
// partway leaves no partial state: either the assessment, its parts, and the
// item update all land, or none do.
func (r *assessmentRepository) CreatePeer(ctx context.Context, assessment *models.Assessment, scorerWorkflowID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		itemQuery := tx.
			Where("scorer_workflow_id = ? AND submission_uuid = ?", scorerWorkflowID, assessment.SubmissionUUID)
		itemQuery = lockForUpdate(itemQuery, "peer_workflow_items")

		var item models.PeerWorkflowItem
		if err := itemQuery.First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotReserved
			}
			return err
		}

		if item.Scored {
			return ErrItemAlreadyScored
		}

		if err := tx.Create(assessment).Error; err != nil {
			return err
		}

		return tx.Model(&models.PeerWorkflowItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"scored":        true,
				"assessment_id": assessment.ID,
			}).Error
	})
}

func (r *assessmentRepository) ListPeerBySubmission(ctx context.Context, submissionUUID string) ([]models.Assessment, error) {
	var assessments []models.Assessment
	if err := r.db.WithContext(ctx).
		Preload("Parts.Option").
		Preload("Rubric.Criteria", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Preload("Rubric.Criteria.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Where("submission_uuid = ? AND score_type = ?", submissionUUID, models.ScoreTypePeer).
		Order("scored_at ASC, id ASC").
		Find(&assessments).Error; err != nil {
		return nil, err
	}

	return assessments, nil
}

func (r *assessmentRepository) CountPeerBySubmission(ctx context.Context, submissionUUID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Assessment{}).
		Where("submission_uuid = ? AND score_type = ?", submissionUUID, models.ScoreTypePeer).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
