package models

import "github.com/google/uuid"

type SubTask struct {
	BaseModel

	Title       string    `gorm:"not null"`
	TaskID      uuid.UUID `gorm:"type:char(36);not null;index"`
	IsCompleted bool      `gorm:"not null;default:false"`
	CreatedByID uuid.UUID `gorm:"type:char(36);not null"`
}
