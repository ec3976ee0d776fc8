// Package cascade removes projects and tasks together with everything that
// depends on them.
//
// Deletion is not transactional. Children are removed before parents and
// the root row goes last, and every step is a delete-by-filter, so a run
// that stops halfway can simply be repeated against the surviving root.
// Blob store failures are logged and skipped; they never block deletion of
// the rows that referenced the blobs.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/storage"
	"gorm.io/gorm"
)

// RetryPolicy bounds blob store calls made during a cascade.
type RetryPolicy struct {
	// Timeout applies to each attempt.
	Timeout time.Duration

	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Backoff is multiplied by the attempt number between tries.
	Backoff time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	Timeout:     10 * time.Second,
	MaxAttempts: 3,
	Backoff:     200 * time.Millisecond,
}

type Orchestrator struct {
	db     *gorm.DB
	blobs  storage.BlobStore
	retry  RetryPolicy
	logger *slog.Logger
}

func NewOrchestrator(db *gorm.DB, blobs storage.BlobStore, retry RetryPolicy, logger *slog.Logger) *Orchestrator {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Orchestrator{db: db, blobs: blobs, retry: retry, logger: logger}
}

// DeleteTask removes one task: attachments, then subtasks, then the row.
func (o *Orchestrator) DeleteTask(ctx context.Context, projectID, taskID uuid.UUID) error {
	var task models.Task

	err := o.db.WithContext(ctx).Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Task not found")
	}
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	if err := o.deleteTaskChildren(ctx, task); err != nil {
		return err
	}

	if err := o.db.WithContext(ctx).Where("id = ?", task.ID).Delete(&models.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	o.logger.Info("task deleted", "task_id", task.ID, "project_id", task.ProjectID)
	return nil
}

// DeleteProject removes a project: every task's attachments and subtasks,
// then tasks, notes, members and finally the project row.
func (o *Orchestrator) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	var project models.Project

	err := o.db.WithContext(ctx).Where("id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Project not found")
	}
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	var tasks []models.Task
	if err := o.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&tasks).Error; err != nil {
		return fmt.Errorf("load project tasks: %w", err)
	}

	for _, task := range tasks {
		if err := o.deleteTaskChildren(ctx, task); err != nil {
			return err
		}
	}

	steps := []struct {
		name  string
		model any
		where string
	}{
		{"tasks", &models.Task{}, "project_id = ?"},
		{"notes", &models.ProjectNote{}, "project_id = ?"},
		{"members", &models.ProjectMember{}, "project_id = ?"},
		{"project", &models.Project{}, "id = ?"},
	}

	for _, step := range steps {
		if err := o.db.WithContext(ctx).Where(step.where, projectID).Delete(step.model).Error; err != nil {
			return fmt.Errorf("delete %s of project %s: %w", step.name, projectID, err)
		}
	}

	o.logger.Info("project deleted", "project_id", projectID, "tasks", len(tasks))
	return nil
}

func (o *Orchestrator) deleteTaskChildren(ctx context.Context, task models.Task) error {
	for _, attachment := range task.Attachments {
		o.RemoveBlob(ctx, attachment.PublicID, attachment.ResourceType)
	}

	if err := o.db.WithContext(ctx).Where("task_id = ?", task.ID).Delete(&models.SubTask{}).Error; err != nil {
		return fmt.Errorf("delete subtasks of task %s: %w", task.ID, err)
	}
	return nil
}

// RemoveBlob deletes a blob under the retry policy. It reports whether the
// blob was removed; failures are logged, never returned.
func (o *Orchestrator) RemoveBlob(ctx context.Context, publicID, resourceType string) bool {
	for attempt := 1; ; attempt++ {
		err := o.deleteOnce(ctx, publicID, resourceType)
		if err == nil {
			return true
		}

		if errors.Is(err, storage.ErrInvalidPublicID) || attempt >= o.retry.MaxAttempts {
			o.skipBlob(publicID, resourceType, attempt, err)
			return false
		}

		o.logger.Warn("blob delete failed, retrying",
			"public_id", publicID, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			o.skipBlob(publicID, resourceType, attempt, ctx.Err())
			return false
		case <-time.After(o.retry.Backoff * time.Duration(attempt)):
		}
	}
}

func (o *Orchestrator) skipBlob(publicID, resourceType string, attempts int, err error) {
	o.logger.Error("blob delete skipped",
		"public_id", publicID, "resource_type", resourceType, "attempts", attempts, "error", err)
}

func (o *Orchestrator) deleteOnce(ctx context.Context, publicID, resourceType string) error {
	if o.retry.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.retry.Timeout)
		defer cancel()
	}
	return o.blobs.Delete(ctx, publicID, resourceType)
}
