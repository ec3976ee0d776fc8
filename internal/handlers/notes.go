package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/utils"
	"gorm.io/gorm"
)

type NoteRequest struct {
	Content string `json:"content" binding:"required"`
}

func checkNoteContent(content string) error {
	var checks fieldChecks
	checks.length("content", "Note Content", content, 10, 1000)
	return checks.err()
}

func (h *Handler) ListNotes(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	notes, err := h.views.Notes(ctx.Request.Context(), projectID)
	if err != nil {
		fail(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, "Notes fetched successfully", notes)
}

func (h *Handler) GetNote(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	noteID, err := utils.GetNoteID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	note, err := h.views.Note(ctx.Request.Context(), projectID, noteID)
	if err != nil {
		fail(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, "Note fetched successfully", note)
}

func (h *Handler) CreateNote(ctx *gin.Context) {
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

	var body NoteRequest
	if !bindJSON(ctx, &body) {
		return
	}

	content := strings.TrimSpace(body.Content)
	if err := checkNoteContent(content); err != nil {
		fail(ctx, err)
		return
	}

	c := ctx.Request.Context()

	if err := h.requireProject(c, projectID); err != nil {
		fail(ctx, err)
		return
	}

	note := models.ProjectNote{
		ProjectID:   projectID,
		CreatedByID: currentUser.ID,
		Content:     content,
	}
	if err := h.db.WithContext(c).Create(&note).Error; err != nil {
		fail(ctx, apperr.Internal("Failed to create note", err))
		return
	}

	view, err := h.views.Note(c, projectID, note.ID)
	if err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Note added")
	respond(ctx, http.StatusCreated, "Note added to project successfully", view)
}

// loadOwnNote returns the note when the caller wrote it or holds full access
// to the project.
func (h *Handler) loadOwnNote(ctx *gin.Context, projectID, noteID uuid.UUID) (models.ProjectNote, error) {
	var note models.ProjectNote

	err := h.db.WithContext(ctx.Request.Context()).Where("id = ? AND project_id = ?", noteID, projectID).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return note, apperr.NotFound("Note not found")
	}
	if err != nil {
		return note, apperr.Internal("Failed to load note", err)
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		return note, apperr.Unauthenticated("User not authenticated")
	}

	if note.CreatedByID != currentUser.ID && !utils.GetDecision(ctx).Basis.FullProjectAccess() {
		return note, apperr.Unauthorized("Only the author or a project admin can change this note")
	}

	return note, nil
}

func (h *Handler) UpdateNote(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	noteID, err := utils.GetNoteID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	var body NoteRequest
	if !bindJSON(ctx, &body) {
		return
	}

	content := strings.TrimSpace(body.Content)
	if err := checkNoteContent(content); err != nil {
		fail(ctx, err)
		return
	}

	note, err := h.loadOwnNote(ctx, projectID, noteID)
	if err != nil {
		fail(ctx, err)
		return
	}

	c := ctx.Request.Context()

	if err := h.db.WithContext(c).Model(&note).Update("content", content).Error; err != nil {
		fail(ctx, apperr.Internal("Failed to update note", err))
		return
	}

	view, err := h.views.Note(c, projectID, noteID)
	if err != nil {
		fail(ctx, err)
		return
	}

	h.hub.BroadcastRefresh(projectID, "Note updated")
	respond(ctx, http.StatusOK, "Note updated successfully", view)
}

func (h *Handler) DeleteNote(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	noteID, err := utils.GetNoteID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	note, err := h.loadOwnNote(ctx, projectID, noteID)
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := h.db.WithContext(ctx.Request.Context()).Delete(&note).Error; err != nil {
		fail(ctx, apperr.Internal("Failed to delete note", err))
		return
	}

	h.hub.BroadcastRefresh(projectID, "Note deleted")
	respond(ctx, http.StatusOK, "Note deleted successfully", nil)
}
