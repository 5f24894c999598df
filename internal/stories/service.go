package stories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storyframe-backend/internal/events"
	"github.com/angelmondragon/storyframe-backend/internal/narrative"
	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
	"github.com/angelmondragon/storyframe-backend/pkg/metrics"
)

const (
	DefaultStyle  = "narrative"
	DefaultLength = "medium"

	lockScope        = "story"
	serviceNarrative = "narrative_engine"
	stageStory       = "story"
	releaseTimeout   = 5 * time.Second
)

var storyUniqueConstraints = []string{"idx_stories_media_id", "stories.media_id"}

type storyRepository interface {
	Create(ctx context.Context, story *models.Story) (*models.Story, error)
	FindByMedia(ctx context.Context, mediaID uuid.UUID) (*models.Story, error)
}

type mediaLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

type questionLister interface {
	ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.Question, error)
}

type answerLister interface {
	ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.Answer, error)
}

type narrativeEngine interface {
	Generate(ctx context.Context, req narrative.Request) (string, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service generates and reads the single story of a media item.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*models.Story, error)
	Get(ctx context.Context, mediaID uuid.UUID) (*models.Story, error)
}

// GenerateInput selects the media and story options. Blank options use the
// configured defaults.
type GenerateInput struct {
	MediaID uuid.UUID
	Style   string
	Length  string
}

type ServiceParams struct {
	Repo          storyRepository
	Media         mediaLookup
	Questions     questionLister
	Answers       answerLister
	Engine        narrativeEngine
	Locker        Locker
	Events        eventPublisher
	Metrics       *metrics.PipelineMetrics
	Logger        *logger.Logger
	DefaultStyle  string
	DefaultLength string
}

type service struct {
	repo          storyRepository
	media         mediaLookup
	questions     questionLister
	answers       answerLister
	engine        narrativeEngine
	locker        Locker
	events        eventPublisher
	metrics       *metrics.PipelineMetrics
	logg          *logger.Logger
	defaultStyle  string
	defaultLength string
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("story repository required")
	case p.Media == nil:
		return nil, fmt.Errorf("media lookup required")
	case p.Questions == nil:
		return nil, fmt.Errorf("question lister required")
	case p.Answers == nil:
		return nil, fmt.Errorf("answer lister required")
	case p.Engine == nil:
		return nil, fmt.Errorf("narrative engine required")
	}
	svc := &service{
		repo:          p.Repo,
		media:         p.Media,
		questions:     p.Questions,
		answers:       p.Answers,
		engine:        p.Engine,
		locker:        p.Locker,
		events:        p.Events,
		metrics:       p.Metrics,
		logg:          p.Logger,
		defaultStyle:  firstNonEmpty(p.DefaultStyle, DefaultStyle),
		defaultLength: firstNonEmpty(p.DefaultLength, DefaultLength),
	}
	if svc.locker == nil {
		svc.locker = NewMemoryLocker()
	}
	if svc.events == nil {
		svc.events = events.Noop()
	}
	return svc, nil
}

func (s *service) Generate(ctx context.Context, input GenerateInput) (*models.Story, error) {
	if input.MediaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	if s.logg != nil {
		ctx = s.logg.WithMediaID(ctx, input.MediaID.String())
	}

	release, ok, err := s.locker.TryLock(ctx, lockScope+":"+input.MediaID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire story lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicate, "story generation already in progress")
	}
	defer s.release(ctx, release)

	story, err := s.generateLocked(ctx, input)
	s.metrics.IncStage(stageStory, err)
	return story, err
}

func (s *service) generateLocked(ctx context.Context, input GenerateInput) (*models.Story, error) {
	if _, err := s.repo.FindByMedia(ctx, input.MediaID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicate, "story already exists for media")
	} else if !repo.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing story")
	}

	media, err := s.media.FindByID(ctx, input.MediaID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media")
	}

	var questions []models.Question
	var answers []models.Answer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = s.questions.ListByMedia(gctx, input.MediaID)
		return err
	})
	g.Go(func() error {
		var err error
		answers, err = s.answers.ListByMedia(gctx, input.MediaID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load story inputs")
	}
	if len(questions) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientData, "media has no questions to build a story from")
	}
	if len(answers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientData, "media has no answers to build a story from")
	}

	style := firstNonEmpty(input.Style, s.defaultStyle)
	length := firstNonEmpty(input.Length, s.defaultLength)
	req := buildRequest(media, questions, answers, style, length)

	var content string
	err = s.metrics.TimeExternal(serviceNarrative, func() error {
		var genErr error
		content, genErr = s.engine.Generate(ctx, req)
		return genErr
	})
	if err != nil {
		var engineErr *narrative.EngineError
		if errors.As(err, &engineErr) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeExternalService, err, engineErr.Error()).
				WithDetails(map[string]any{"service": "narrative engine"})
		}
		return nil, pkgerrors.External("narrative engine", err)
	}

	story := &models.Story{MediaID: input.MediaID, Content: content, Style: style, Length: length}
	if _, err := s.repo.Create(ctx, story); err != nil {
		if isStoryConflict(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "story already exists for media")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create story")
	}

	s.events.Publish(ctx, events.Event{
		Type:        events.TypeStoryGenerated,
		AggregateID: input.MediaID,
		ActorID:     media.OwnerID,
		Data:        events.StoryGenerated{StoryID: story.ID, MediaID: input.MediaID, Style: style, Length: length},
	})
	return story, nil
}

func (s *service) Get(ctx context.Context, mediaID uuid.UUID) (*models.Story, error) {
	if mediaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	story, err := s.repo.FindByMedia(ctx, mediaID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "story not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load story")
	}
	return story, nil
}

func (s *service) release(ctx context.Context, release func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := release(ctx); err != nil && s.logg != nil {
		s.logg.Error(ctx, "stories.lock_release_failed", err)
	}
}

func buildRequest(media *models.Media, questions []models.Question, answers []models.Answer, style, length string) narrative.Request {
	req := narrative.Request{
		MediaID:   media.ID,
		Questions: make([]narrative.Question, 0, len(questions)),
		Answers:   make([]narrative.Answer, 0, len(answers)),
		Options:   narrative.Options{Style: style, Length: length},
		ImageURL:  media.DisplayURL(),
	}
	for _, q := range questions {
		req.Questions = append(req.Questions, narrative.Question{
			ID:       q.ID,
			Content:  q.Content,
			Category: q.Category,
			Level:    q.Level,
			Theme:    string(q.Theme),
		})
	}
	for _, a := range answers {
		req.Answers = append(req.Answers, narrative.Answer{ID: a.ID, Content: a.Content, AuthorID: a.AuthorID})
	}
	return req
}

func isStoryConflict(err error) bool {
	for _, name := range storyUniqueConstraints {
		if db.IsUniqueViolation(err, name) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
