package answers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
)

// Repository persists answers. There is no update path.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, answer *models.Answer) (*models.Answer, error) {
	if err := r.DB(ctx).Create(answer).Error; err != nil {
		return nil, err
	}
	return answer, nil
}

// ListByQuestion returns the answers to questionID, oldest first.
func (r *Repository) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	var out []models.Answer
	if err := r.DB(ctx).
		Where("question_id = ?", questionID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByMedia returns every answer to any question of mediaID, oldest first.
func (r *Repository) ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.Answer, error) {
	var out []models.Answer
	if err := r.DB(ctx).
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("questions.media_id = ?", mediaID).
		Order("answers.created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
