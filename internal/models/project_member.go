package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/types"
)

// ProjectMember is keyed by (ProjectID, MemberID); the composite primary key
// is what guarantees one role per user per project.
type ProjectMember struct {
	ProjectID uuid.UUID  `gorm:"type:char(36);primaryKey"`
	MemberID  uuid.UUID  `gorm:"type:char(36);primaryKey;index"`
	Role      types.Role `gorm:"not null;default:member"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
