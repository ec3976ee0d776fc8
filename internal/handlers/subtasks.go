package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/readmodel"
	"github.com/monocle-dev/taskboard/internal/utils"
	"gorm.io/gorm"
)

type CreateSubTaskRequest struct {
	Title string `json:"title" binding:"required"`
}

type UpdateSubTaskRequest struct {
	Title       *string `json:"title"`
	IsCompleted *bool   `json:"isCompleted"`
}

func subTaskView(s models.SubTask) readmodel.SubTaskView {
	return readmodel.SubTaskView{ID: s.ID, Title: s.Title, IsCompleted: s.IsCompleted}
}

// parentTask loads the task a subtask route is scoped to.
func (h *Handler) parentTask(c context.Context, taskID uuid.UUID) (models.Task, error) {
	var task models.Task

	err := h.db.WithContext(c).Select("id", "project_id").Where("id = ?", taskID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return task, apperr.NotFound("Task not found")
	}
	if err != nil {
		return task, apperr.Internal("Failed to load task", err)
	}
	return task, nil
}

// subTaskScope parses the route and resolves the parent task.
func (h *Handler) subTaskScope(ctx *gin.Context) (models.Task, bool) {
	taskID, err := utils.GetTaskID(ctx)
	if err != nil {
		fail(ctx, err)
		return models.Task{}, false
	}

	task, err := h.parentTask(ctx.Request.Context(), taskID)
	if err != nil {
		fail(ctx, err)
		return models.Task{}, false
	}
	return task, true
}

func (h *Handler) ListSubTasks(ctx *gin.Context) {
	task, ok := h.subTaskScope(ctx)
	if !ok {
		return
	}

	subtasks, err := h.views.SubTasks(ctx.Request.Context(), task.ID)
	if err != nil {
		fail(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, "Subtasks fetched successfully", subtasks)
}

func (h *Handler) CreateSubTask(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		fail(ctx, apperr.Unauthenticated("User not authenticated"))
		return
	}

	task, ok := h.subTaskScope(ctx)
	if !ok {
		return
	}

	var body CreateSubTaskRequest
	if !bindJSON(ctx, &body) {
		return
	}

	title := strings.TrimSpace(body.Title)

	var checks fieldChecks
	checks.length("title", "Subtask Title", title, 2, 100)
	if err := checks.err(); err != nil {
		fail(ctx, err)
		return
	}

	subtask := models.SubTask{
		Title:       title,
		TaskID:      task.ID,
		CreatedByID: currentUser.ID,
	}
	if err := h.db.WithContext(ctx.Request.Context()).Create(&subtask).Error; err != nil {
		fail(ctx, apperr.Internal("Failed to create subtask", err))
		return
	}

	h.hub.BroadcastRefresh(task.ProjectID, "Subtask added")
	respond(ctx, http.StatusCreated, "Subtask created successfully", subTaskView(subtask))
}

func (h *Handler) UpdateSubTask(ctx *gin.Context) {
	task, ok := h.subTaskScope(ctx)
	if !ok {
		return
	}
	subtaskID, err := utils.GetSubTaskID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateSubTaskRequest
	if !bindJSON(ctx, &body) {
		return
	}

	updates := make(map[string]any)
	var checks fieldChecks

	if body.Title != nil {
		title := strings.TrimSpace(*body.Title)
		checks.length("title", "Subtask Title", title, 2, 100)
		updates["title"] = title
	}
	if body.IsCompleted != nil {
		updates["is_completed"] = *body.IsCompleted
	}
	if err := checks.err(); err != nil {
		fail(ctx, err)
		return
	}

	if len(updates) == 0 {
		fail(ctx, apperr.BadRequest("No valid fields to update"))
		return
	}

	db := h.db.WithContext(ctx.Request.Context())

	result := db.Model(&models.SubTask{}).Where("id = ? AND task_id = ?", subtaskID, task.ID).Updates(updates)
	if result.Error != nil {
		fail(ctx, apperr.Internal("Failed to update subtask", result.Error))
		return
	}
	if result.RowsAffected == 0 {
		fail(ctx, apperr.NotFound("Subtask not found"))
		return
	}

	var subtask models.SubTask
	if err := db.Where("id = ?", subtaskID).First(&subtask).Error; err != nil {
		fail(ctx, storeError(err, "load subtask"))
		return
	}

	h.hub.BroadcastRefresh(task.ProjectID, "Subtask updated")
	respond(ctx, http.StatusOK, "Subtask updated successfully", subTaskView(subtask))
}

func (h *Handler) DeleteSubTask(ctx *gin.Context) {
	task, ok := h.subTaskScope(ctx)
	if !ok {
		return
	}
	subtaskID, err := utils.GetSubTaskID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	result := h.db.WithContext(ctx.Request.Context()).
		Where("id = ? AND task_id = ?", subtaskID, task.ID).
		Delete(&models.SubTask{})
	if result.Error != nil {
		fail(ctx, apperr.Internal("Failed to delete subtask", result.Error))
		return
	}
	if result.RowsAffected == 0 {
		fail(ctx, apperr.NotFound("Subtask not found"))
		return
	}

	h.hub.BroadcastRefresh(task.ProjectID, "Subtask deleted")
	respond(ctx, http.StatusOK, "Subtask deleted successfully", nil)
}
