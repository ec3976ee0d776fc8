package readmodel

import (
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/types"
)

// UserSummary is the public slice of a user embedded in other views.
// Avatar is only populated where the view calls for it.
type UserSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Avatar string    `json:"avatar,omitempty"`
}

type ProjectView struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	CreatedBy   *UserSummary `json:"createdBy"`
	Members     []MemberView `json:"members"`
	Notes       []NoteView   `json:"notes"`
	Tasks       []TaskView   `json:"tasks"`
}

type MemberView struct {
	ProjectID uuid.UUID    `json:"projectId"`
	MemberID  uuid.UUID    `json:"memberId"`
	Role      types.Role   `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Member    *UserSummary `json:"member"`
}

type NoteView struct {
	ID        uuid.UUID    `json:"id"`
	ProjectID uuid.UUID    `json:"projectId"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	CreatedBy *UserSummary `json:"createdBy"`
}

type TaskView struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	ProjectID   uuid.UUID           `json:"projectId"`
	Status      string              `json:"status"`
	Attachments []models.Attachment `json:"attachments"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	AssignedTo  *UserSummary        `json:"assignedTo"`
	AssignedBy  *UserSummary        `json:"assignedBy"`
	SubTasks    []SubTaskView       `json:"subtasks"`
}

type SubTaskView struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"isCompleted"`
}
