package questions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	"github.com/angelmondragon/storyframe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
)

const maxContentLength = 2000

type questionRepository interface {
	Create(ctx context.Context, question *models.Question) (*models.Question, error)
	ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.Question, error)
}

type mediaLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

// Service exposes user-authored questions and question listing.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Question, error)
	ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.Question, error)
}

// CreateInput describes a question written directly by a user.
type CreateInput struct {
	MediaID   uuid.UUID
	AuthorID  uuid.UUID
	Content   string
	Theme     string
	Category  string
	Level     int
	IsPrivate bool
}

type service struct {
	repo  questionRepository
	media mediaLookup
}

func NewService(repo questionRepository, media mediaLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("question repository required")
	}
	if media == nil {
		return nil, fmt.Errorf("media lookup required")
	}
	return &service{repo: repo, media: media}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Question, error) {
	if input.MediaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	if input.AuthorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author identity missing")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	if len(content) > maxContentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("content must be at most %d characters", maxContentLength))
	}

	theme := enums.QuestionThemeSeniorCare
	if strings.TrimSpace(input.Theme) != "" {
		parsed, err := enums.ParseQuestionTheme(input.Theme)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid theme").
				WithDetails(map[string]any{"theme": input.Theme})
		}
		theme = parsed
	}

	level := input.Level
	if level == 0 {
		level = 1
	}
	if level < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "level must be at least 1")
	}

	if _, err := s.media.FindByID(ctx, input.MediaID); err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media")
	}

	authorID := input.AuthorID
	question := &models.Question{
		MediaID:   input.MediaID,
		AuthorID:  &authorID,
		Content:   content,
		Theme:     theme,
		Category:  strings.TrimSpace(input.Category),
		Level:     level,
		IsPrivate: input.IsPrivate,
	}
	created, err := s.repo.Create(ctx, question)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create question")
	}
	return created, nil
}

func (s *service) ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.Question, error) {
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list questions")
	}
	return list, nil
}
