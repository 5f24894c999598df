package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/internal/keywords"
	"github.com/angelmondragon/storyframe-backend/internal/media"
	"github.com/angelmondragon/storyframe-backend/internal/questions"
	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	"github.com/angelmondragon/storyframe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

// MaxKeywordsUsed bounds the keyword snapshot stored on generated questions.
const MaxKeywordsUsed = 5

const confidencePlaces = 4

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Processor turns analysis payloads into keywords, media links and questions.
type Processor struct {
	tx        txRunner
	media     *media.Repository
	keywords  *keywords.Repository
	questions *questions.Repository
	logg      *logger.Logger
	now       func() time.Time
}

// ProcessorParams groups the repositories the processor rebinds to its transaction.
type ProcessorParams struct {
	Tx        txRunner
	Media     *media.Repository
	Keywords  *keywords.Repository
	Questions *questions.Repository
	Logger    *logger.Logger
}

func NewProcessor(p ProcessorParams) (*Processor, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Media == nil || p.Keywords == nil || p.Questions == nil {
		return nil, fmt.Errorf("media, keyword and question repositories required")
	}
	return &Processor{
		tx:        p.Tx,
		media:     p.Media,
		keywords:  p.Keywords,
		questions: p.Questions,
		logg:      p.Logger,
		now:       time.Now,
	}, nil
}

// Process validates raw and applies it to mediaID in a single transaction.
// Keywords and media links are deduplicated; questions are not, so
// processing the same payload twice yields duplicate questions.
func (p *Processor) Process(ctx context.Context, mediaID uuid.UUID, raw []byte) ([]models.Question, error) {
	payload, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	labels := payload.Labels()
	keywordsUsed := make([]string, 0, MaxKeywordsUsed)
	for _, label := range labels {
		if len(keywordsUsed) == MaxKeywordsUsed {
			break
		}
		keywordsUsed = append(keywordsUsed, label.Description)
	}

	created := []models.Question{}
	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		mediaRepo := p.media.WithTx(tx)
		keywordRepo := p.keywords.WithTx(tx)
		questionRepo := p.questions.WithTx(tx)

		if _, err := mediaRepo.FindByID(ctx, mediaID); err != nil {
			if repo.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media")
		}

		for _, item := range payload.Items {
			var name string
			var score float64
			switch v := item.(type) {
			case LabelResult:
				name, score = v.Description, v.Score
			case ObjectResult:
				name, score = v.Name, v.Score
			default:
				continue
			}
			kw, err := keywordRepo.Upsert(ctx, name, enums.KeywordCategoryObject)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert keyword")
			}
			confidence := decimal.NewFromFloat(score).Round(confidencePlaces)
			if err := keywordRepo.Link(ctx, mediaID, kw.ID, confidence); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link keyword")
			}
		}

		for _, proposal := range payload.Proposals() {
			q := &models.Question{
				MediaID:      mediaID,
				Content:      proposal.Content,
				Theme:        ThemeForCategory(proposal.Category),
				Category:     proposal.Category,
				Level:        1,
				IsPrivate:    false,
				KeywordsUsed: append([]string(nil), keywordsUsed...),
			}
			if _, err := questionRepo.Create(ctx, q); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create question")
			}
			created = append(created, *q)
		}

		if err := mediaRepo.RecordAnalysis(ctx, mediaID, raw, p.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record analysis result")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.logg != nil {
		logCtx := p.logg.WithFields(p.logg.WithMediaID(ctx, mediaID.String()), map[string]any{
			"labels":    len(labels),
			"questions": len(created),
		})
		p.logg.Info(logCtx, "analysis.processed")
	}
	return created, nil
}
