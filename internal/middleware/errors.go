package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/internal/apperr"
)

type ErrorResponse struct {
	StatusCode int                 `json:"statusCode"`
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Errors     []apperr.FieldError `json:"errors,omitempty"`
	Stack      string              `json:"stack,omitempty"`
}

// ErrorHandler is the one place errors are logged and rendered. Handlers
// and middleware only attach them with ctx.Error.
func ErrorHandler(logger *slog.Logger, production bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		if len(ctx.Errors) == 0 {
			return
		}

		err := apperr.As(ctx.Errors.Last().Err)
		status := err.Kind.Status()

		attrs := []any{
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", status,
			"kind", err.Kind.String(),
			"error", err.Error(),
		}
		if status >= 500 {
			logger.Error(err.Message, attrs...)
		} else {
			logger.Warn(err.Message, attrs...)
		}

		if ctx.Writer.Written() {
			return
		}

		response := ErrorResponse{
			StatusCode: status,
			Success:    false,
			Message:    err.Message,
			Errors:     err.Errors,
		}
		if !production {
			response.Stack = err.Stack
		}

		ctx.AbortWithStatusJSON(status, response)
	}
}
