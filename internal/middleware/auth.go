package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/auth"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/types"
	"gorm.io/gorm"
)

// AuthenticatedUser is the user record with every credential and token
// field stripped.
type AuthenticatedUser struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            types.Role `json:"role"`
	Avatar          string     `json:"avatar"`
	AuthProvider    string     `json:"authProvider"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

var sensitiveUserColumns = []string{
	"password_hash",
	"refresh_token",
	"email_verification_token",
	"email_verification_expiry",
	"forgot_password_token",
	"forgot_password_expiry",
}

// AuthMiddleware resolves the bearer credential to a user and stores it in
// the request context. The token is taken from the access token cookie
// first, then from the Authorization header.
func AuthMiddleware(tokens *auth.JWT, db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, err := extractToken(ctx)

		if err != nil {
			abort(ctx, err)
			return
		}

		userID, err := tokens.Verify(tokenString)

		if err != nil {
			abort(ctx, apperr.Unauthenticated("Invalid or expired token"))
			return
		}

		var user models.User

		err = db.WithContext(ctx.Request.Context()).Omit(sensitiveUserColumns...).Where("id = ?", userID).First(&user).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			abort(ctx, apperr.NotFound("User not found"))
			return
		}

		if err != nil {
			abort(ctx, apperr.Internal("Failed to resolve user", err))
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:              user.ID,
			Name:            user.Name,
			Email:           user.Email,
			Role:            user.Role,
			Avatar:          user.Avatar,
			AuthProvider:    user.AuthProvider,
			IsEmailVerified: user.IsEmailVerified,
			CreatedAt:       user.CreatedAt,
			UpdatedAt:       user.UpdatedAt,
		})
		ctx.Next()
	}
}

func extractToken(ctx *gin.Context) (string, error) {
	if cookie, err := ctx.Cookie(types.AccessTokenCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie), nil
	}

	authHeader := ctx.GetHeader("Authorization")

	if authHeader == "" {
		return "", apperr.Unauthenticated("Authorization token is required")
	}

	parts := strings.SplitN(authHeader, " ", 2)

	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", apperr.Unauthenticated("Authorization header format must be Bearer {token}")
	}

	return strings.TrimSpace(parts[1]), nil
}

// abort records err for the error middleware and stops the chain.
func abort(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}
