package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Story is the narrative generated for a media item. At most one exists per media.
type Story struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MediaID   uuid.UUID `gorm:"column:media_id;type:uuid;not null;uniqueIndex:idx_stories_media_id" json:"media_id"`
	Content   string    `gorm:"column:content;not null" json:"content"`
	Style     string    `gorm:"column:style;not null" json:"style"`
	Length    string    `gorm:"column:length;not null" json:"length"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (s *Story) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{&Media{}, &Keyword{}, &MediaKeyword{}, &Question{}, &Answer{}, &Story{}}
}
