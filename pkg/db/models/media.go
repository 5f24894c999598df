package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Media is an uploaded photo plus the metadata recorded by analysis.
type Media struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID        *uuid.UUID     `gorm:"column:owner_id;type:uuid;index" json:"owner_id"`
	AlbumID        *uuid.UUID     `gorm:"column:album_id;type:uuid;index" json:"album_id"`
	FileURL        string         `gorm:"column:file_url;not null" json:"file_url"`
	ImageURL       *string        `gorm:"column:image_url" json:"image_url"`
	FileType       string         `gorm:"column:file_type;not null" json:"file_type"`
	FileSize       int64          `gorm:"column:file_size;not null;default:0;check:chk_media_file_size,file_size >= 0" json:"file_size"`
	AnalysisResult datatypes.JSON `gorm:"column:analysis_result" json:"analysis_result"`
	AnalyzedAt     *time.Time     `gorm:"column:analyzed_at" json:"analyzed_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Media) TableName() string { return "media" }

func (m *Media) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// DisplayURL returns the image URL when set, otherwise the stored file URL.
func (m Media) DisplayURL() string {
	if m.ImageURL != nil && *m.ImageURL != "" {
		return *m.ImageURL
	}
	return m.FileURL
}
