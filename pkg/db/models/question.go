package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/pkg/enums"
)

// Question prompts the user about a media item. AuthorID is set only for
// user-authored questions.
type Question struct {
	ID           uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MediaID      uuid.UUID                  `gorm:"column:media_id;type:uuid;not null;index" json:"media_id"`
	AuthorID     *uuid.UUID                 `gorm:"column:author_id;type:uuid" json:"author_id"`
	Content      string                     `gorm:"column:content;not null" json:"content"`
	Theme        enums.QuestionTheme        `gorm:"column:theme;type:varchar(32);not null" json:"theme"`
	Category     string                     `gorm:"column:category" json:"category"`
	Level        int                        `gorm:"column:level;not null;default:1" json:"level"`
	IsPrivate    bool                       `gorm:"column:is_private;not null;default:false" json:"is_private"`
	KeywordsUsed datatypes.JSONSlice[string] `gorm:"column:keywords_used" json:"keywords_used"`
	CreatedAt    time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (q *Question) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
