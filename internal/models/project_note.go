package models

import "github.com/google/uuid"

type ProjectNote struct {
	BaseModel

	ProjectID   uuid.UUID `gorm:"type:char(36);not null;index"`
	CreatedByID uuid.UUID `gorm:"type:char(36);not null"`
	Content     string    `gorm:"type:text;not null"`
}
