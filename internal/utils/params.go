package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
)

func parseParam(ctx *gin.Context, name string, invalid func() *apperr.Error) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param(name))

	if err != nil {
		return uuid.Nil, invalid()
	}

	return id, nil
}

func GetProjectID(ctx *gin.Context) (uuid.UUID, error) {
	return parseParam(ctx, "projectId", apperr.InvalidProject)
}

func GetTaskID(ctx *gin.Context) (uuid.UUID, error) {
	return parseParam(ctx, "taskId", apperr.InvalidTask)
}

func GetNoteID(ctx *gin.Context) (uuid.UUID, error) {
	return parseParam(ctx, "noteId", func() *apperr.Error { return apperr.BadRequest("Invalid Note ID") })
}

func GetSubTaskID(ctx *gin.Context) (uuid.UUID, error) {
	return parseParam(ctx, "subtaskId", func() *apperr.Error { return apperr.BadRequest("Invalid Subtask ID") })
}

func GetUserID(ctx *gin.Context) (uuid.UUID, error) {
	return parseParam(ctx, "userId", func() *apperr.Error { return apperr.BadRequest("Invalid User ID") })
}

// ParseBodyID validates an identifier that arrived in a request body.
func ParseBodyID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)

	if err != nil {
		return uuid.Nil, apperr.BadRequest("Invalid " + field)
	}

	return id, nil
}
