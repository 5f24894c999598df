package keywords

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
)

type keywordRepository interface {
	ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]MediaKeyword, error)
}

type mediaLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

// Service exposes the keywords derived for a media item.
type Service interface {
	ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]MediaKeyword, error)
}

type service struct {
	repo  keywordRepository
	media mediaLookup
}

func NewService(keywords keywordRepository, media mediaLookup) (Service, error) {
	if keywords == nil {
		return nil, fmt.Errorf("keyword repository required")
	}
	if media == nil {
		return nil, fmt.Errorf("media lookup required")
	}
	return &service{repo: keywords, media: media}, nil
}

func (s *service) ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]MediaKeyword, error) {
	if mediaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	if _, err := s.media.FindByID(ctx, mediaID); err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media")
	}
	list, err := s.repo.ListByMedia(ctx, mediaID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list keywords")
	}
	return list, nil
}
