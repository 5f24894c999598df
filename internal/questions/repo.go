package questions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
)

// Repository persists questions.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, question *models.Question) (*models.Question, error) {
	if err := r.DB(ctx).Create(question).Error; err != nil {
		return nil, err
	}
	return question, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	var q models.Question
	if err := r.DB(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// ListByMedia returns the questions for mediaID in creation order.
func (r *Repository) ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.Question, error) {
	var out []models.Question
	if err := r.DB(ctx).
		Where("media_id = ?", mediaID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
