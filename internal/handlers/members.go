package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/types"
	"github.com/monocle-dev/taskboard/internal/utils"
	"gorm.io/gorm"
)

type AddMemberRequest struct {
	MemberID string     `json:"memberId" binding:"required"`
	Role     types.Role `json:"role"`
}

type UpdateMemberRequest struct {
	MemberID string     `json:"memberId" binding:"required"`
	Role     types.Role `json:"role" binding:"required"`
}

type RemoveMemberRequest struct {
	MemberID string `json:"memberId" binding:"required"`
}

func validateRole(role types.Role) error {
	if !role.Valid() {
		return apperr.Validation("Validation failed", apperr.FieldError{Field: "role", Message: "Invalid role"})
	}
	return nil
}

func (h *Handler) ListMembers(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	members, err := h.views.Members(ctx.Request.Context(), projectID)
	if err != nil {
		fail(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, "Project members fetched successfully", members)
}

func (h *Handler) AddMember(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	var body AddMemberRequest
	if !bindJSON(ctx, &body) {
		return
	}

	memberID, err := utils.ParseBodyID(body.MemberID, "Member ID")
	if err != nil {
		fail(ctx, err)
		return
	}

	if body.Role == "" {
		body.Role = types.RoleMember
	}
	if err := validateRole(body.Role); err != nil {
		fail(ctx, err)
		return
	}

	c := ctx.Request.Context()
	db := h.db.WithContext(c)

	if err := h.requireProject(c, projectID); err != nil {
		fail(ctx, err)
		return
	}

	var user models.User
	err = db.Select("id").Where("id = ?", memberID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(ctx, apperr.NotFound("User not found"))
		return
	}
	if err != nil {
		fail(ctx, apperr.Internal("Failed to load user", err))
		return
	}

	var existing int64
	if err := db.Model(&models.ProjectMember{}).Where("project_id = ? AND member_id = ?", projectID, memberID).Count(&existing).Error; err != nil {
		fail(ctx, apperr.Internal("Failed to check membership", err))
		return
	}
	if existing > 0 {
		fail(ctx, apperr.Conflict("User is already a member of this project"))
		return
	}

	member := models.ProjectMember{ProjectID: projectID, MemberID: memberID, Role: body.Role}
	if err := db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fail(ctx, apperr.Conflict("User is already a member of this project"))
			return
		}
		fail(ctx, apperr.Internal("Failed to add member", err))
		return
	}

	view, err := h.views.Member(c, projectID, memberID)
	if err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Member added")
	respond(ctx, http.StatusCreated, "Member added to project successfully", view)
}

func (h *Handler) UpdateMemberRole(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateMemberRequest
	if !bindJSON(ctx, &body) {
		return
	}

	memberID, err := utils.ParseBodyID(body.MemberID, "Member ID")
	if err != nil {
		fail(ctx, err)
		return
	}
	if err := validateRole(body.Role); err != nil {
		fail(ctx, err)
		return
	}

	c := ctx.Request.Context()

	result := h.db.WithContext(c).Model(&models.ProjectMember{}).
		Where("project_id = ? AND member_id = ?", projectID, memberID).
		Update("role", body.Role)
	if result.Error != nil {
		fail(ctx, apperr.Internal("Failed to update member role", result.Error))
		return
	}
	if result.RowsAffected == 0 {
		fail(ctx, apperr.NotFound("Member not found"))
		return
	}

	view, err := h.views.Member(c, projectID, memberID)
	if err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Member role updated")
	respond(ctx, http.StatusOK, "Member role updated successfully", view)
}

func (h *Handler) RemoveMember(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	var body RemoveMemberRequest
	if !bindJSON(ctx, &body) {
		return
	}

	memberID, err := utils.ParseBodyID(body.MemberID, "Member ID")
	if err != nil {
		fail(ctx, err)
		return
	}

	result := h.db.WithContext(ctx.Request.Context()).
		Where("project_id = ? AND member_id = ?", projectID, memberID).
		Delete(&models.ProjectMember{})
	if result.Error != nil {
		fail(ctx, apperr.Internal("Failed to remove member", result.Error))
		return
	}
	if result.RowsAffected == 0 {
		fail(ctx, apperr.NotFound("Member not found"))
		return
	}

	h.hub.BroadcastRefresh(projectID, "Member removed")
	respond(ctx, http.StatusOK, "Member removed from project successfully", gin.H{"memberId": memberID})
}
