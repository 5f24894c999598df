package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/pkg/enums"
)

// Keyword is a globally unique vocabulary entry.
type Keyword struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string                `gorm:"column:name;not null;uniqueIndex:idx_keywords_name" json:"name"`
	Category  enums.KeywordCategory `gorm:"column:category;type:varchar(16);not null" json:"category"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (k *Keyword) BeforeCreate(*gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

// MediaKeyword links a media item to a keyword with the detection confidence.
type MediaKeyword struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MediaID    uuid.UUID       `gorm:"column:media_id;type:uuid;not null;uniqueIndex:idx_media_keywords_pair,priority:1" json:"media_id"`
	KeywordID  uuid.UUID       `gorm:"column:keyword_id;type:uuid;not null;uniqueIndex:idx_media_keywords_pair,priority:2" json:"keyword_id"`
	Confidence decimal.Decimal `gorm:"column:confidence;type:numeric(6,4);not null" json:"confidence"`
}

func (m *MediaKeyword) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
