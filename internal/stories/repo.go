package stories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
)

// Repository persists generated stories.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, story *models.Story) (*models.Story, error) {
	if err := r.DB(ctx).Create(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

func (r *Repository) FindByMedia(ctx context.Context, mediaID uuid.UUID) (*models.Story, error) {
	var s models.Story
	if err := r.DB(ctx).First(&s, "media_id = ?", mediaID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
