package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyframe-backend/internal/events"
	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
	"github.com/angelmondragon/storyframe-backend/pkg/metrics"
	"github.com/angelmondragon/storyframe-backend/pkg/storage"
)

const (
	serviceAnalysis = "analysis_engine"
	serviceBlob     = "blob_store"
	stageIngest     = "ingest"
	stageAnalysis   = "analysis"
)

type mediaRepository interface {
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

type imageStore interface {
	Put(ctx context.Context, data []byte, contentType, objectPath string) (string, error)
	Delete(ctx context.Context, url string) error
}

type analysisEngine interface {
	Analyze(ctx context.Context, imageURL, authToken string) ([]byte, error)
}

type resultProcessor interface {
	Process(ctx context.Context, mediaID uuid.UUID, raw []byte) ([]models.Question, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service coordinates photo ingest and analysis.
type Service interface {
	Ingest(ctx context.Context, input IngestInput) (*IngestResult, error)
	Reanalyze(ctx context.Context, mediaID uuid.UUID, authToken string) (*IngestResult, error)
}

// IngestInput carries an uploaded photo and its owning identifiers.
type IngestInput struct {
	OwnerID     *uuid.UUID
	AlbumID     *uuid.UUID
	FileName    string
	ContentType string
	Data        []byte
	// Size is the size reported by the client. Unreported or negative sizes are stored as 0.
	Size      int64
	AuthToken string
}

// IngestResult reports the stored media and the questions generated for it.
// AnalysisPending is set when analysis failed and can be retried with Reanalyze.
type IngestResult struct {
	MediaID         uuid.UUID         `json:"media_id"`
	FileURL         string            `json:"file_url"`
	Questions       []models.Question `json:"questions"`
	AnalysisPending bool              `json:"analysis_pending"`
	AnalysisError   string            `json:"analysis_error,omitempty"`
}

type service struct {
	repo      mediaRepository
	store     imageStore
	engine    analysisEngine
	processor resultProcessor
	events    eventPublisher
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger
}

// ServiceParams groups the collaborators of the ingest coordinator.
type ServiceParams struct {
	Repo      mediaRepository
	Store     imageStore
	Engine    analysisEngine
	Processor resultProcessor
	Events    eventPublisher
	Metrics   *metrics.PipelineMetrics
	Logger    *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("image store required")
	}
	if p.Engine == nil {
		return nil, fmt.Errorf("analysis engine required")
	}
	if p.Processor == nil {
		return nil, fmt.Errorf("analysis processor required")
	}
	svc := &service{
		repo:      p.Repo,
		store:     p.Store,
		engine:    p.Engine,
		processor: p.Processor,
		events:    p.Events,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}
	if svc.events == nil {
		svc.events = events.Noop()
	}
	return svc, nil
}

func (s *service) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if len(input.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}

	mediaID := uuid.New()
	ctx = s.withMedia(ctx, mediaID)
	contentType := strings.TrimSpace(input.ContentType)
	objectPath := storage.MediaObjectPath(mediaID, input.FileName)

	var fileURL string
	err := s.metrics.TimeExternal(serviceBlob, func() error {
		var putErr error
		fileURL, putErr = s.store.Put(ctx, input.Data, contentType, objectPath)
		return putErr
	})
	if err != nil {
		s.metrics.IncStage(stageIngest, err)
		return nil, err
	}

	size := input.Size
	if size < 0 {
		size = 0
	}
	record := &models.Media{
		ID:       mediaID,
		OwnerID:  input.OwnerID,
		AlbumID:  input.AlbumID,
		FileURL:  fileURL,
		FileType: contentType,
		FileSize: size,
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		s.compensateUpload(ctx, fileURL)
		s.metrics.IncStage(stageIngest, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create media")
	}
	s.metrics.IncStage(stageIngest, nil)

	result := &IngestResult{MediaID: mediaID, FileURL: fileURL, Questions: []models.Question{}}
	s.analyze(ctx, record, input.AuthToken, result)
	return result, nil
}

// Reanalyze re-runs analysis for an existing media item against its stored URL.
func (s *service) Reanalyze(ctx context.Context, mediaID uuid.UUID, authToken string) (*IngestResult, error) {
	if mediaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	ctx = s.withMedia(ctx, mediaID)

	record, err := s.repo.FindByID(ctx, mediaID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media")
	}

	result := &IngestResult{MediaID: record.ID, FileURL: record.FileURL, Questions: []models.Question{}}
	if err := s.analyze(ctx, record, authToken, result); err != nil {
		return nil, err
	}
	return result, nil
}

// analyze fills result with generated questions. Failures mark the result
// pending and are returned for callers that treat them as fatal.
func (s *service) analyze(ctx context.Context, record *models.Media, authToken string, result *IngestResult) error {
	var raw []byte
	err := s.metrics.TimeExternal(serviceAnalysis, func() error {
		var analyzeErr error
		raw, analyzeErr = s.engine.Analyze(ctx, record.DisplayURL(), authToken)
		return analyzeErr
	})
	if err == nil {
		var questions []models.Question
		questions, err = s.processor.Process(ctx, record.ID, raw)
		if err == nil && questions != nil {
			result.Questions = questions
		}
	}
	s.metrics.IncStage(stageAnalysis, err)

	if err != nil {
		typed := s.classifyAnalysisError(err)
		result.AnalysisPending = true
		result.AnalysisError = typed.Message()
		if s.logg != nil {
			s.logg.Error(ctx, "media.analysis_failed", typed)
		}
		return typed
	}

	s.events.Publish(ctx, events.Event{
		Type:        events.TypeMediaAnalyzed,
		AggregateID: record.ID,
		ActorID:     record.OwnerID,
		Data:        events.MediaAnalyzed{MediaID: record.ID, QuestionCount: len(result.Questions)},
	})
	return nil
}

// classifyAnalysisError keeps processor not-found and internal errors as they
// are; everything else, including malformed payloads, is an upstream failure.
func (s *service) classifyAnalysisError(err error) *pkgerrors.Error {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeNotFound, pkgerrors.CodeInternal, pkgerrors.CodeExternalService:
			return typed
		}
	}
	return pkgerrors.External("analysis engine", err)
}

func (s *service) compensateUpload(ctx context.Context, fileURL string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, fileURL); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "file_url", fileURL), "media.compensating_delete_failed", err)
	}
}

func (s *service) withMedia(ctx context.Context, mediaID uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithMediaID(ctx, mediaID.String())
}
