package models

import (
	"time"

	"github.com/monocle-dev/taskboard/internal/types"
)

type User struct {
	BaseModel

	Name         string     `gorm:"not null"`
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Role         types.Role `gorm:"not null;default:member"`
	Avatar       string
	AuthProvider string `gorm:"not null;default:credentials"`

	IsEmailVerified         bool `gorm:"not null;default:false"`
	RefreshToken            string
	EmailVerificationToken  string
	EmailVerificationExpiry *time.Time
	ForgotPasswordToken     string
	ForgotPasswordExpiry    *time.Time
}
