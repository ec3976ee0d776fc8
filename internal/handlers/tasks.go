package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/readmodel"
	"github.com/monocle-dev/taskboard/internal/storage"
	"github.com/monocle-dev/taskboard/internal/types"
	"github.com/monocle-dev/taskboard/internal/utils"
)

const maxTaskAttachments = 5

type UpdateTaskRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	AssignedToID *string `json:"assignedToId"`
	Status       *string `json:"status"`
}

func (h *Handler) isMember(c context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64

	err := h.db.WithContext(c).Model(&models.ProjectMember{}).
		Where("project_id = ? AND member_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Internal("Failed to check membership", err)
	}
	return count > 0, nil
}

// checkAssignee requires the assignee to hold a membership in the project.
func (h *Handler) checkAssignee(c context.Context, projectID uuid.UUID, raw string) (uuid.UUID, error) {
	assigneeID, err := utils.ParseBodyID(raw, "Assignee ID")
	if err != nil {
		return uuid.Nil, err
	}

	member, err := h.isMember(c, projectID, assigneeID)
	if err != nil {
		return uuid.Nil, err
	}
	if !member {
		return uuid.Nil, apperr.Validation("Validation failed", apperr.FieldError{
			Field:   "assignedToId",
			Message: "Assignee must be a member of the project",
		})
	}

	return assigneeID, nil
}

// storeAttachments uploads every file. When one fails, the blobs already
// stored for this request are removed again.
func (h *Handler) storeAttachments(c context.Context, files []*multipart.FileHeader) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(files))

	for _, fh := range files {
		obj, err := h.putFile(c, fh)
		if err != nil {
			h.discardAttachments(c, attachments)
			return nil, apperr.Internal("Failed to upload attachment", err)
		}

		attachments = append(attachments, models.Attachment{
			PublicID:     obj.PublicID,
			URL:          obj.URL,
			Format:       obj.Format,
			ResourceType: obj.ResourceType,
			Checksum:     obj.Checksum,
		})
	}

	return attachments, nil
}

func (h *Handler) putFile(c context.Context, fh *multipart.FileHeader) (storage.Object, error) {
	f, err := fh.Open()
	if err != nil {
		return storage.Object{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	return h.blobs.Put(c, fh.Filename, f)
}

func (h *Handler) discardAttachments(c context.Context, attachments []models.Attachment) {
	for _, a := range attachments {
		h.cascade.RemoveBlob(c, a.PublicID, a.ResourceType)
	}
}

// CreateTask accepts a multipart form: name, description, assignedToId and
// up to five attachments.
func (h *Handler) CreateTask(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		fail(ctx, apperr.Unauthenticated("User not authenticated"))
		return
	}
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		fail(ctx, apperr.BadRequest("Invalid multipart form"))
		return
	}

	name := strings.TrimSpace(ctx.PostForm("name"))
	description := strings.TrimSpace(ctx.PostForm("description"))
	files := form.File["attachments"]

	var checks fieldChecks
	checks.length("name", "Task Name", name, 2, 100)
	checks.length("description", "Task Description", description, 2, 100)
	if len(files) > maxTaskAttachments {
		checks = append(checks, apperr.FieldError{
			Field:   "attachments",
			Message: fmt.Sprintf("At most %d attachments are allowed", maxTaskAttachments),
		})
	}
	if err := checks.err(); err != nil {
		fail(ctx, err)
		return
	}

	c := ctx.Request.Context()

	if err := h.requireProject(c, projectID); err != nil {
		fail(ctx, err)
		return
	}

	assigneeID, err := h.checkAssignee(c, projectID, ctx.PostForm("assignedToId"))
	if err != nil {
		fail(ctx, err)
		return
	}

	attachments, err := h.storeAttachments(c, files)
	if err != nil {
		fail(ctx, err)
		return
	}

	task := models.Task{
		Name:         name,
		Description:  description,
		ProjectID:    projectID,
		AssignedToID: assigneeID,
		AssignedByID: currentUser.ID,
		Status:       types.TaskStatusTodo,
		Attachments:  attachments,
	}

	if err := h.db.WithContext(c).Create(&task).Error; err != nil {
		h.discardAttachments(c, attachments)
		fail(ctx, apperr.Internal("Failed to create task", err))
		return
	}

	view, err := h.views.Task(c, projectID, task.ID)
	if err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Task created")
	respond(ctx, http.StatusCreated, "Task assigned successfully", view)
}

// ListTasks returns every task to callers with full project access and only
// the tasks they take part in to everyone else.
func (h *Handler) ListTasks(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		fail(ctx, apperr.Unauthenticated("User not authenticated"))
		return
	}
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	query := readmodel.TaskQuery{ProjectID: projectID}
	if !utils.GetDecision(ctx).Basis.FullProjectAccess() {
		query.ParticipantID = currentUser.ID
	}

	tasks, err := h.views.Tasks(ctx.Request.Context(), query)
	if err != nil {
		fail(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, "Tasks fetched successfully", tasks)
}

func (h *Handler) GetTask(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	taskID, err := utils.GetTaskID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	view, err := h.views.Task(ctx.Request.Context(), projectID, taskID)
	if err != nil {
		fail(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, "Task fetched successfully", view)
}

func (h *Handler) UpdateTask(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	taskID, err := utils.GetTaskID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateTaskRequest
	if !bindJSON(ctx, &body) {
		return
	}

	updates := make(map[string]any)
	var checks fieldChecks

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		checks.length("name", "Task Name", name, 2, 100)
		updates["name"] = name
	}
	if body.Description != nil {
		description := strings.TrimSpace(*body.Description)
		checks.length("description", "Task Description", description, 2, 100)
		updates["description"] = description
	}
	if body.Status != nil {
		checks.oneOf("status", "Task Status", *body.Status, types.AvailableTaskStatuses)
		updates["status"] = *body.Status
	}
	if err := checks.err(); err != nil {
		fail(ctx, err)
		return
	}

	c := ctx.Request.Context()

	if body.AssignedToID != nil {
		assigneeID, err := h.checkAssignee(c, projectID, *body.AssignedToID)
		if err != nil {
			fail(ctx, err)
			return
		}
		updates["assigned_to_id"] = assigneeID
	}

	if len(updates) == 0 {
		fail(ctx, apperr.BadRequest("No valid fields to update"))
		return
	}

	result := h.db.WithContext(c).Model(&models.Task{}).
		Where("id = ? AND project_id = ?", taskID, projectID).
		Updates(updates)
	if result.Error != nil {
		fail(ctx, apperr.Internal("Failed to update task", result.Error))
		return
	}
	if result.RowsAffected == 0 {
		fail(ctx, apperr.NotFound("Task not found"))
		return
	}

	view, err := h.views.Task(c, projectID, taskID)
	if err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Task updated")
	respond(ctx, http.StatusOK, "Task updated successfully", view)
}

func (h *Handler) DeleteTask(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	taskID, err := utils.GetTaskID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := h.cascade.DeleteTask(ctx.Request.Context(), projectID, taskID); err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Task deleted")
	respond(ctx, http.StatusOK, "Task deleted successfully", nil)
}
