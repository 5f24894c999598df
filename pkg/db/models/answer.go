package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/pkg/enums"
)

// Answer is a single append-only response to a question.
type Answer struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID          `gorm:"column:question_id;type:uuid;not null;index" json:"question_id"`
	AuthorID   uuid.UUID          `gorm:"column:author_id;type:uuid;not null" json:"author_id"`
	Content    string             `gorm:"column:content;not null" json:"content"`
	IsPrivate  bool               `gorm:"column:is_private;not null;default:false" json:"is_private"`
	Source     enums.AnswerSource `gorm:"column:source;type:varchar(8);not null" json:"source"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (a *Answer) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
