package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question is one exercise in the assessment's ordered sequence. PublicID is
// the opaque identifier exchanged with clients and the grading service; the
// numeric key never leaves the database layer.
type Question struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	PublicID  string            `gorm:"size:64;uniqueIndex;not null" json:"public_id"`
	Position  int               `gorm:"not null;index" json:"position"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Prompt    string            `gorm:"type:text;not null" json:"prompt"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
