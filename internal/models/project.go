package models

import "github.com/google/uuid"

type Project struct {
	BaseModel

	Name        string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	Status      string    `gorm:"not null;default:active"`
	CreatedByID uuid.UUID `gorm:"type:char(36);not null;index"`
}
