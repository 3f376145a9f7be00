package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

// SubmissionRepository defines data operations against the response ledger.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByUUID(ctx context.Context, submissionUUID string) (models.Submission, error)
	ListByStudentItem(ctx context.Context, item models.StudentItem, limit int) ([]models.Submission, error)
}

type submissionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db, now: time.Now}
}

// Create appends a submission to the ledger, assigning its UUID and attempt
// number. Attempt numbering is computed inside the same transaction so two
// concurrent submissions from one student cannot share a number.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if submission.UUID == "" {
			submission.UUID = uuid.NewString()
		}
		if submission.SubmittedAt.IsZero() {
			submission.SubmittedAt = r.now().UTC()
		}

		var attempts int64
		if err := tx.Model(&models.Submission{}).
			Where("course_id = ? AND item_id = ? AND student_id = ?",
				submission.CourseID, submission.ItemID, submission.StudentID).
			Count(&attempts).Error; err != nil {
			return err
		}
		submission.AttemptNumber = int(attempts) + 1

		return tx.Create(submission).Error
	})
}

func (r *submissionRepository) GetByUUID(ctx context.Context, submissionUUID string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Where("uuid = ?", submissionUUID).First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// ListByStudentItem returns the student's submissions for one item, newest
// first.
func (r *submissionRepository) ListByStudentItem(ctx context.Context, item models.StudentItem, limit int) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Where("course_id = ? AND item_id = ? AND student_id = ?", item.CourseID, item.ItemID, item.StudentID).
		Order("submitted_at DESC, attempt_number DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var submissions []models.Submission
	if err := query.Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}
