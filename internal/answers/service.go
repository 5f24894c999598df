package answers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyframe-backend/internal/audio"
	"github.com/angelmondragon/storyframe-backend/internal/events"
	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/internal/speech"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	"github.com/angelmondragon/storyframe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
	"github.com/angelmondragon/storyframe-backend/pkg/metrics"
)

const (
	serviceCodec  = "codec"
	serviceSpeech = "speech_to_text"
	stageAnswer   = "answer"
)

type answerRepository interface {
	Create(ctx context.Context, answer *models.Answer) (*models.Answer, error)
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error)
}

type questionLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
}

type audioNormalizer interface {
	Normalize(ctx context.Context, clip audio.Clip) audio.Result
}

type transcriber interface {
	Transcribe(ctx context.Context, a speech.Audio) (string, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service captures text or voice answers to questions.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Answer, error)
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error)
}

// AudioClip is a recorded answer. An empty Data slice counts as no audio.
type AudioClip struct {
	FileName    string
	ContentType string
	Data        []byte
}

// SubmitInput is one answer submission. When both Text and Audio are
// supplied the transcript wins.
type SubmitInput struct {
	QuestionID uuid.UUID
	AuthorID   uuid.UUID
	Text       string
	Audio      *AudioClip
	IsPrivate  bool
}

type ServiceParams struct {
	Repo        answerRepository
	Questions   questionLookup
	Normalizer  audioNormalizer
	Transcriber transcriber
	Events      eventPublisher
	Metrics     *metrics.PipelineMetrics
	Logger      *logger.Logger
}

type service struct {
	repo        answerRepository
	questions   questionLookup
	normalizer  audioNormalizer
	transcriber transcriber
	events      eventPublisher
	metrics     *metrics.PipelineMetrics
	logg        *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("answer repository required")
	}
	if p.Questions == nil {
		return nil, fmt.Errorf("question lookup required")
	}
	if p.Normalizer == nil {
		return nil, fmt.Errorf("audio normalizer required")
	}
	if p.Transcriber == nil {
		return nil, fmt.Errorf("transcriber required")
	}
	svc := &service{
		repo:        p.Repo,
		questions:   p.Questions,
		normalizer:  p.Normalizer,
		transcriber: p.Transcriber,
		events:      p.Events,
		metrics:     p.Metrics,
		logg:        p.Logger,
	}
	if svc.events == nil {
		svc.events = events.Noop()
	}
	return svc, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Answer, error) {
	if input.QuestionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "question id is required")
	}
	if input.AuthorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author identity missing")
	}

	hasAudio := input.Audio != nil && len(input.Audio.Data) > 0
	text := strings.TrimSpace(input.Text)
	if !hasAudio && text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "either text or audio is required")
	}

	if s.logg != nil {
		ctx = s.logg.WithQuestionID(ctx, input.QuestionID.String())
	}

	if _, err := s.questions.FindByID(ctx, input.QuestionID); err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "question not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load question")
	}

	content := input.Text
	source := enums.AnswerSourceText
	if hasAudio {
		transcript, err := s.transcribe(ctx, *input.Audio)
		if err != nil {
			s.metrics.IncStage(stageAnswer, err)
			return nil, err
		}
		content = transcript
		source = enums.AnswerSourceAudio
	}

	answer := &models.Answer{
		QuestionID: input.QuestionID,
		AuthorID:   input.AuthorID,
		Content:    content,
		IsPrivate:  input.IsPrivate,
		Source:     source,
	}
	if _, err := s.repo.Create(ctx, answer); err != nil {
		s.metrics.IncStage(stageAnswer, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create answer")
	}
	s.metrics.IncStage(stageAnswer, nil)

	actor := input.AuthorID
	s.events.Publish(ctx, events.Event{
		Type:        events.TypeAnswerRecorded,
		AggregateID: input.QuestionID,
		ActorID:     &actor,
		Data:        events.AnswerRecorded{AnswerID: answer.ID, QuestionID: input.QuestionID, Source: string(source)},
	})
	return answer, nil
}

func (s *service) transcribe(ctx context.Context, clip AudioClip) (string, error) {
	var result audio.Result
	_ = s.metrics.TimeExternal(serviceCodec, func() error {
		result = s.normalizer.Normalize(ctx, audio.Clip{
			FileName:    clip.FileName,
			ContentType: clip.ContentType,
			Data:        bytes.NewReader(clip.Data),
		})
		if !result.OK() {
			return fmt.Errorf("%s", result.Reason)
		}
		return nil
	})
	if !result.OK() {
		return "", pkgerrors.New(pkgerrors.CodeExternalService, "audio normalization unavailable: "+result.Detail).
			WithDetails(map[string]any{"service": "audio codec", "reason": string(result.Reason)})
	}
	defer func() {
		if err := result.Release(); err != nil && s.logg != nil {
			s.logg.Error(ctx, "answers.scratch_release_failed", err)
		}
	}()

	var transcript string
	err := s.metrics.TimeExternal(serviceSpeech, func() error {
		var err error
		transcript, err = s.transcriber.Transcribe(ctx, speech.Audio{
			Path:        result.Path,
			FileName:    clip.FileName,
			ContentType: result.ContentType,
		})
		return err
	})
	if err != nil {
		return "", pkgerrors.External("speech transcription", err)
	}
	return transcript, nil
}

func (s *service) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	if questionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "question id is required")
	}
	if _, err := s.questions.FindByID(ctx, questionID); err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "question not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load question")
	}
	list, err := s.repo.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list answers")
	}
	return list, nil
}
