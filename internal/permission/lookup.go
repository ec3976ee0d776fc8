package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/types"
	"gorm.io/gorm"
)

// StoreLookup answers evaluator queries from the database.
type StoreLookup struct {
	DB *gorm.DB
}

func (l StoreLookup) Membership(ctx context.Context, projectID, memberID uuid.UUID, roles []types.Role) (*models.ProjectMember, error) {
	var member models.ProjectMember

	err := l.DB.WithContext(ctx).
		Where("project_id = ? AND member_id = ? AND role IN ?", projectID, memberID, roles).
		First(&member).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &member, nil
}

func (l StoreLookup) Task(ctx context.Context, projectID, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task

	err := l.DB.WithContext(ctx).
		Where("id = ? AND project_id = ?", taskID, projectID).
		First(&task).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	return &task, nil
}

func (l StoreLookup) TaskProject(ctx context.Context, taskID uuid.UUID) (uuid.UUID, bool, error) {
	var task models.Task

	err := l.DB.WithContext(ctx).Select("id", "project_id").Where("id = ?", taskID).First(&task).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("load task project: %w", err)
	}
	return task.ProjectID, true, nil
}
