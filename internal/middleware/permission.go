package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/permission"
	"github.com/monocle-dev/taskboard/internal/types"
)

func currentUser(ctx *gin.Context) (AuthenticatedUser, bool) {
	value, exists := ctx.Get(types.ContextUserKey)
	if !exists {
		return AuthenticatedUser{}, false
	}
	user, ok := value.(AuthenticatedUser)
	return user, ok
}

// VerifyPermission runs the evaluator against the :projectId and :taskId
// route parameters. The decision is stored in the context for handlers that
// scope their queries by it.
func VerifyPermission(ev *permission.Evaluator, op permission.Operation, roles ...types.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := currentUser(ctx)

		if !ok {
			abort(ctx, apperr.Unauthenticated("User not authenticated"))
			return
		}

		target := permission.Target{
			ProjectID: ctx.Param("projectId"),
			TaskID:    ctx.Param("taskId"),
		}

		decision, err := ev.Authorize(ctx.Request.Context(), permission.Subject{ID: user.ID, Role: user.Role}, roles, target, op)

		if err != nil {
			abort(ctx, err)
			return
		}

		if !decision.Allowed {
			abort(ctx, decision.Err())
			return
		}

		ctx.Set(types.ContextDecisionKey, decision)
		ctx.Next()
	}
}

// RequireGlobalRole gates routes that have no project in scope. Global
// admins always pass.
func RequireGlobalRole(roles ...types.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := currentUser(ctx)

		if !ok {
			abort(ctx, apperr.Unauthenticated("User not authenticated"))
			return
		}

		if user.Role != types.RoleAdmin && !slices.Contains(roles, user.Role) {
			abort(ctx, apperr.Unauthorized("Unauthorized action"))
			return
		}

		ctx.Next()
	}
}
