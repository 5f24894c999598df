package keywords

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storyframe-backend/internal/repo"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	"github.com/angelmondragon/storyframe-backend/pkg/enums"
)

// Repository persists the keyword vocabulary and media links.
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

// Upsert returns the keyword named name, creating it with category when it
// does not exist yet. Existing keywords keep their category.
func (r *Repository) Upsert(ctx context.Context, name string, category enums.KeywordCategory) (*models.Keyword, error) {
	name = strings.TrimSpace(name)
	db := r.DB(ctx)

	candidate := models.Keyword{Name: name, Category: category}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return nil, err
	}

	var kw models.Keyword
	if err := db.Where("name = ?", name).First(&kw).Error; err != nil {
		return nil, err
	}
	return &kw, nil
}

// Link attaches keywordID to mediaID. An existing link is left untouched,
// including its confidence.
func (r *Repository) Link(ctx context.Context, mediaID, keywordID uuid.UUID, confidence decimal.Decimal) error {
	link := models.MediaKeyword{MediaID: mediaID, KeywordID: keywordID, Confidence: confidence}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "media_id"}, {Name: "keyword_id"}},
		DoNothing: true,
	}).Create(&link).Error
}

// MediaKeyword is a keyword as linked to one media item.
type MediaKeyword struct {
	ID         uuid.UUID             `json:"id"`
	Name       string                `json:"name"`
	Category   enums.KeywordCategory `json:"category"`
	Confidence decimal.Decimal       `json:"confidence"`
}

// ListByMedia returns the keywords linked to mediaID ordered by name.
func (r *Repository) ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]MediaKeyword, error) {
	var links []models.MediaKeyword
	if err := r.DB(ctx).Where("media_id = ?", mediaID).Find(&links).Error; err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []MediaKeyword{}, nil
	}

	ids := make([]uuid.UUID, 0, len(links))
	confidence := make(map[uuid.UUID]decimal.Decimal, len(links))
	for _, link := range links {
		ids = append(ids, link.KeywordID)
		confidence[link.KeywordID] = link.Confidence
	}
	var kws []models.Keyword
	if err := r.DB(ctx).Where("id IN ?", ids).Order("name ASC").Find(&kws).Error; err != nil {
		return nil, err
	}

	out := make([]MediaKeyword, 0, len(kws))
	for _, kw := range kws {
		out = append(out, MediaKeyword{
			ID:         kw.ID,
			Name:       kw.Name,
			Category:   kw.Category,
			Confidence: confidence[kw.ID],
		})
	}
	return out, nil
}
