package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/models"
)

// RubricRepository defines data operations for content-addressed rubrics.
type RubricRepository interface {
	GetByHash(ctx context.Context, contentHash string) (models.Rubric, error)
	Create(ctx context.Context, rubric *models.Rubric) error
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository instantiates the repository.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

func (r *rubricRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Rubric{}).
		Preload("Criteria", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Preload("Criteria.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		})
}

func (r *rubricRepository) GetByHash(ctx context.Context, contentHash string) (models.Rubric, error) {
	var rubric models.Rubric
	if err := r.baseQuery(ctx).Where("content_hash = ?", contentHash).First(&rubric).Error; err != nil {
		return models.Rubric{}, err
	}

	return rubric, nil
}

func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.db.WithContext(ctx).Create(rubric).Error
}
