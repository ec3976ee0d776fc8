package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/internal/middleware"
	"github.com/monocle-dev/taskboard/internal/permission"
	"github.com/monocle-dev/taskboard/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, fmt.Errorf("User not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, fmt.Errorf("Invalid user type in context")
	}

	return authenticatedUser, nil
}

// GetDecision returns the permission decision recorded by VerifyPermission.
// Routes without a permission check get the zero Decision.
func GetDecision(ctx *gin.Context) permission.Decision {
	value, exists := ctx.Get(types.ContextDecisionKey)

	if !exists {
		return permission.Decision{}
	}

	decision, _ := value.(permission.Decision)
	return decision
}
