package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Attachment points at a blob owned by exactly one task.
type Attachment struct {
	PublicID     string `json:"publicId"`
	URL          string `json:"url"`
	Format       string `json:"format"`
	ResourceType string `json:"resourceType"`
	Checksum     string `json:"checksum,omitempty"`
}

type Task struct {
	BaseModel

	Name         string    `gorm:"not null"`
	Description  string    `gorm:"not null"`
	ProjectID    uuid.UUID `gorm:"type:char(36);not null;index"`
	AssignedToID uuid.UUID `gorm:"type:char(36);not null;index"`
	AssignedByID uuid.UUID `gorm:"type:char(36);not null;index"`
	Status       string    `gorm:"not null;default:todo"`

	Attachments datatypes.JSONSlice[Attachment]
}
