package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Media describes one ingested file: where it lives on the storage disk and
// which derived renditions were generated for it. Rows are written once per
// successful ingestion; only Alt and Data are editable afterwards.
type Media struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CollectionName string         `gorm:"size:255;index" json:"collection_name"`
	Path           string         `gorm:"size:500" json:"path"`
	FileName       string         `gorm:"size:255" json:"file_name"`
	Alt            string         `gorm:"size:255" json:"alt"`
	MimeType       string         `gorm:"size:100;index" json:"mime_type"`
	FileSize       int64          `json:"file_size"`
	WebpName       *string        `gorm:"size:255" json:"webp_name,omitempty"`
	WebpSize       *int64         `json:"webp_size,omitempty"`
	ImageSizes     datatypes.JSON `json:"image_sizes"`
	Data           datatypes.JSON `json:"data"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Media) TableName() string {
	return "media"
}

// Rendition is the descriptor stored per size-profile name inside
// Media.ImageSizes. WebpName and WebpSize are either both set or both absent.
type Rendition struct {
	FileName string  `json:"file_name"`
	FileSize int64   `json:"file_size"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	WebpName *string `json:"webp_name,omitempty"`
	WebpSize *int64  `json:"webp_size,omitempty"`
}

// Renditions decodes the ImageSizes JSON column. Profiles removed from
// configuration after the row was written still show up here; callers treat
// them as stale entries, not errors.
func (m *Media) Renditions() (map[string]Rendition, error) {
	sizes := map[string]Rendition{}
	if len(m.ImageSizes) == 0 {
		return sizes, nil
	}
	if err := json.Unmarshal(m.ImageSizes, &sizes); err != nil {
		return nil, err
	}
	return sizes, nil
}
