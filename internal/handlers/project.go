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
	"github.com/monocle-dev/taskboard/internal/types"
	"github.com/monocle-dev/taskboard/internal/utils"
	"gorm.io/gorm"
)

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// CreateProject stores the project and enrolls the creator as its
// project_admin in one transaction.
func (h *Handler) CreateProject(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		fail(ctx, apperr.Unauthenticated("User not authenticated"))
		return
	}

	var body CreateProjectRequest
	if !bindJSON(ctx, &body) {
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Description = strings.TrimSpace(body.Description)

	var checks fieldChecks
	checks.length("name", "Project Name", body.Name, 2, 100)
	checks.length("description", "Project Description", body.Description, 2, 100)
	if err := checks.err(); err != nil {
		fail(ctx, err)
		return
	}

	project := models.Project{
		Name:        body.Name,
		Description: body.Description,
		Status:      types.ProjectStatusActive,
		CreatedByID: currentUser.ID,
	}

	err = h.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		return tx.Create(&models.ProjectMember{
			ProjectID: project.ID,
			MemberID:  currentUser.ID,
			Role:      types.RoleProjectAdmin,
		}).Error
	})

	if err != nil {
		fail(ctx, apperr.Internal("Failed to create project", err))
		return
	}

	view, err := h.views.Project(ctx.Request.Context(), project.ID)
	if err != nil {
		fail(ctx, err)
		return
	}

	respond(ctx, http.StatusCreated, "Project created successfully", view)
}

// ListProjects returns every project the caller is a member of.
func (h *Handler) ListProjects(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		fail(ctx, apperr.Unauthenticated("User not authenticated"))
		return
	}

	views, err := h.views.ProjectsForMember(ctx.Request.Context(), currentUser.ID)
	if err != nil {
		fail(ctx, apperr.Internal("Failed to retrieve projects", err))
		return
	}

	respond(ctx, http.StatusOK, "Projects fetched successfully", views)
}

func (h *Handler) GetProject(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	view, err := h.views.Project(ctx.Request.Context(), projectID)
	if err != nil {
		fail(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, "Project fetched successfully", view)
}

func (h *Handler) UpdateProject(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateProjectRequest
	if !bindJSON(ctx, &body) {
		return
	}

	updates := make(map[string]any)
	var checks fieldChecks

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		checks.length("name", "Project Name", name, 2, 100)
		updates["name"] = name
	}
	if body.Description != nil {
		description := strings.TrimSpace(*body.Description)
		checks.length("description", "Project Description", description, 2, 100)
		updates["description"] = description
	}
	if body.Status != nil {
		checks.oneOf("status", "Project Status", *body.Status, types.AvailableProjectStatuses)
		updates["status"] = *body.Status
	}

	if err := checks.err(); err != nil {
		fail(ctx, err)
		return
	}

	if len(updates) == 0 {
		fail(ctx, apperr.BadRequest("No valid fields to update"))
		return
	}

	result := h.db.WithContext(ctx.Request.Context()).Model(&models.Project{}).Where("id = ?", projectID).Updates(updates)
	if result.Error != nil {
		fail(ctx, apperr.Internal("Failed to update project", result.Error))
		return
	}
	if result.RowsAffected == 0 {
		fail(ctx, apperr.NotFound("Project not found"))
		return
	}

	view, err := h.views.Project(ctx.Request.Context(), projectID)
	if err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Project updated")
	respond(ctx, http.StatusOK, "Project updated successfully", view)
}

func (h *Handler) DeleteProject(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := h.cascade.DeleteProject(ctx.Request.Context(), projectID); err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Project deleted")
	respond(ctx, http.StatusOK, "Project deleted successfully", nil)
}

// requireProject fails with NotFound when the project row is absent. Global
// admins skip the membership lookup, so routes that write children of a
// project check existence themselves.
func (h *Handler) requireProject(c context.Context, projectID uuid.UUID) error {
	var project models.Project

	err := h.db.WithContext(c).Select("id").Where("id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Project not found")
	}
	if err != nil {
		return apperr.Internal("Failed to load project", err)
	}
	return nil
}
