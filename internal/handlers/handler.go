package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/auth"
	"github.com/monocle-dev/taskboard/internal/cascade"
	"github.com/monocle-dev/taskboard/internal/config"
	"github.com/monocle-dev/taskboard/internal/readmodel"
	"github.com/monocle-dev/taskboard/internal/storage"
	"github.com/monocle-dev/taskboard/internal/types"
	"gorm.io/gorm"
)

// Handler serves every HTTP route. Errors are attached to the gin context
// and rendered by middleware.ErrorHandler.
type Handler struct {
	db      *gorm.DB
	views   *readmodel.Assembler
	cascade *cascade.Orchestrator
	blobs   storage.BlobStore
	tokens  *auth.JWT
	hub     *Hub
	cfg     config.Config
	logger  *slog.Logger
}

type Options struct {
	Config config.Config
	DB     *gorm.DB
	Blobs  storage.BlobStore
	Tokens *auth.JWT
	Hub    *Hub
	Logger *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hub := opts.Hub
	if hub == nil {
		hub = NewHub(nil, logger)
	}

	retry := cascade.RetryPolicy{
		Timeout:     opts.Config.Storage.Timeout,
		MaxAttempts: opts.Config.Storage.MaxAttempts,
		Backoff:     opts.Config.Storage.RetryBackoff,
	}

	return &Handler{
		db:      opts.DB,
		views:   readmodel.NewAssembler(opts.DB),
		cascade: cascade.NewOrchestrator(opts.DB, opts.Blobs, retry, logger.With("component", "cascade")),
		blobs:   opts.Blobs,
		tokens:  opts.Tokens,
		hub:     hub,
		cfg:     opts.Config,
		logger:  logger,
	}
}

func (h *Handler) Hub() *Hub { return h.hub }

func respond(ctx *gin.Context, status int, message string, data any) {
	ctx.JSON(status, types.NewAPIResponse(status, message, data))
}

func fail(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}

// bindJSON binds the request body, failing the request on error.
func bindJSON(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		fail(ctx, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors

	if !errors.As(err, &verrs) {
		return apperr.BadRequest("Invalid request body")
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field:   lowerFirst(fe.Field()),
			Message: fieldMessage(fe),
		})
	}

	return apperr.Validation("Validation failed", fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// fieldChecks collects field violations found after normalization.
type fieldChecks []apperr.FieldError

// length records a violation when the trimmed value falls outside
// [min, max] characters.
func (c *fieldChecks) length(field, label, value string, min, max int) {
	n := utf8.RuneCountInString(value)

	switch {
	case n == 0:
		*c = append(*c, apperr.FieldError{Field: field, Message: label + " is required"})
	case n < min || n > max:
		*c = append(*c, apperr.FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %d and %d characters", label, min, max),
		})
	}
}

func (c *fieldChecks) oneOf(field, label, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	*c = append(*c, apperr.FieldError{Field: field, Message: "Invalid " + label})
}

func (c fieldChecks) err() error {
	if len(c) == 0 {
		return nil
	}
	return apperr.Validation("Validation failed", c...)
}

// storeError maps gorm errors that callers can act on and wraps the rest.
func storeError(err error, action string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("Resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("Resource already exists")
	default:
		return apperr.Internal("Failed to "+action, err)
	}
}
