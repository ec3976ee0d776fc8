package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/auth"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/types"
	"github.com/monocle-dev/taskboard/internal/utils"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email" binding:"omitempty,email"`
	Avatar          string `json:"avatar"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"omitempty,min=8"`
}

type UpdateRoleRequest struct {
	Role types.Role `json:"role" binding:"required"`
}

type AuthResponse struct {
	User        types.UserResponse `json:"user"`
	AccessToken string             `json:"accessToken"`
}

func userResponse(user models.User) types.UserResponse {
	return types.UserResponse{
		ID:     user.ID.String(),
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Avatar: user.Avatar,
	}
}

func (h *Handler) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	sameSite := http.SameSiteNoneMode
	if !h.cfg.Auth.CookieSecure {
		sameSite = http.SameSiteLaxMode
	}

	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cfg.Auth.CookieDomain,
		MaxAge:   maxAge,
		Secure:   h.cfg.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

func (h *Handler) issueToken(ctx *gin.Context, user models.User) (string, bool) {
	token, err := h.tokens.Generate(user.ID, user.Email)

	if err != nil {
		fail(ctx, apperr.Internal("Failed to issue token", err))
		return "", false
	}

	h.setTokenCookie(ctx, token, int(h.tokens.TTL().Seconds()))
	return token, true
}

func (h *Handler) Register(ctx *gin.Context) {
	var body CreateUserRequest

	if !bindJSON(ctx, &body) {
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	var checks fieldChecks
	checks.length("name", "Name", body.Name, 2, 100)
	if err := checks.err(); err != nil {
		fail(ctx, err)
		return
	}

	var existingUser models.User

	err := h.db.WithContext(ctx.Request.Context()).Where("email = ?", body.Email).First(&existingUser).Error

	if err == nil {
		fail(ctx, apperr.Conflict("Email already exists"))
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		fail(ctx, apperr.Internal("Failed to check existing user", err))
		return
	}

	passwordHash, err := auth.HashPassword(body.Password)

	if err != nil {
		fail(ctx, apperr.Internal("Failed to hash password", err))
		return
	}

	newUser := models.User{
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: passwordHash,
		Role:         types.RoleMember,
		AuthProvider: types.AuthProviderCredentials,
	}

	if err := h.db.WithContext(ctx.Request.Context()).Create(&newUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fail(ctx, apperr.Conflict("Email already exists"))
			return
		}
		fail(ctx, apperr.Internal("Failed to create user", err))
		return
	}

	token, ok := h.issueToken(ctx, newUser)
	if !ok {
		return
	}

	respond(ctx, http.StatusCreated, "User registered successfully", AuthResponse{
		User:        userResponse(newUser),
		AccessToken: token,
	})
}

func (h *Handler) Login(ctx *gin.Context) {
	var body LoginUserRequest

	if !bindJSON(ctx, &body) {
		return
	}

	var existingUser models.User

	email := strings.ToLower(strings.TrimSpace(body.Email))
	err := h.db.WithContext(ctx.Request.Context()).Where("email = ?", email).First(&existingUser).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(ctx, apperr.Unauthenticated("Invalid email or password"))
			return
		}
		fail(ctx, apperr.Internal("Failed to fetch user", err))
		return
	}

	if !auth.CheckPassword(existingUser.PasswordHash, body.Password) {
		fail(ctx, apperr.Unauthenticated("Invalid email or password"))
		return
	}

	token, ok := h.issueToken(ctx, existingUser)
	if !ok {
		return
	}

	respond(ctx, http.StatusOK, "User logged in successfully", AuthResponse{
		User:        userResponse(existingUser),
		AccessToken: token,
	})
}

func (h *Handler) Logout(ctx *gin.Context) {
	h.setTokenCookie(ctx, "", -1)
	respond(ctx, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		fail(ctx, apperr.Unauthenticated("User not authenticated"))
		return
	}

	respond(ctx, http.StatusOK, "Current user fetched successfully", currentUser)
}

func (h *Handler) UpdateMe(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		fail(ctx, apperr.Unauthenticated("User not authenticated"))
		return
	}

	db := h.db.WithContext(ctx.Request.Context())

	// The authenticated user has no password hash, so reload the record.
	var dbUser models.User
	if err := db.Where("id = ?", currentUser.ID).First(&dbUser).Error; err != nil {
		fail(ctx, storeError(err, "fetch user"))
		return
	}

	var body UpdateUserRequest
	if !bindJSON(ctx, &body) {
		return
	}

	updates := make(map[string]any)
	var checks fieldChecks

	if name := strings.TrimSpace(body.Name); name != "" {
		checks.length("name", "Name", name, 2, 100)
		updates["name"] = name
	}

	if avatar := strings.TrimSpace(body.Avatar); avatar != "" {
		updates["avatar"] = avatar
	}

	if err := checks.err(); err != nil {
		fail(ctx, err)
		return
	}

	if body.Email != "" {
		newEmail := strings.ToLower(strings.TrimSpace(body.Email))

		if newEmail != dbUser.Email {
			var existingUser models.User
			err := db.Where("email = ? AND id <> ?", newEmail, dbUser.ID).First(&existingUser).Error
			if err == nil {
				fail(ctx, apperr.Conflict("Email already exists"))
				return
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				fail(ctx, apperr.Internal("Failed to check existing email", err))
				return
			}
		}

		updates["email"] = newEmail
	}

	if body.NewPassword != "" {
		if body.CurrentPassword == "" {
			fail(ctx, apperr.BadRequest("Current password is required to change password"))
			return
		}

		if !auth.CheckPassword(dbUser.PasswordHash, body.CurrentPassword) {
			fail(ctx, apperr.BadRequest("Current password is incorrect"))
			return
		}

		passwordHash, err := auth.HashPassword(body.NewPassword)
		if err != nil {
			fail(ctx, apperr.Internal("Failed to hash password", err))
			return
		}

		updates["password_hash"] = passwordHash
	}

	if len(updates) == 0 {
		fail(ctx, apperr.BadRequest("No valid fields to update"))
		return
	}

	if err := db.Model(&dbUser).Updates(updates).Error; err != nil {
		fail(ctx, storeError(err, "update user"))
		return
	}

	if err := db.Where("id = ?", dbUser.ID).First(&dbUser).Error; err != nil {
		fail(ctx, storeError(err, "refresh user"))
		return
	}

	respond(ctx, http.StatusOK, "User updated successfully", userResponse(dbUser))
}

// UpdateUserRole changes a user's global role. Mounted for global admins
// only.
func (h *Handler) UpdateUserRole(ctx *gin.Context) {
	userID, err := utils.GetUserID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateRoleRequest
	if !bindJSON(ctx, &body) {
		return
	}

	if !body.Role.Valid() {
		fail(ctx, apperr.Validation("Validation failed", apperr.FieldError{Field: "role", Message: "Invalid role"}))
		return
	}

	db := h.db.WithContext(ctx.Request.Context())

	result := db.Model(&models.User{}).Where("id = ?", userID).Update("role", body.Role)
	if result.Error != nil {
		fail(ctx, storeError(result.Error, "update role"))
		return
	}
	if result.RowsAffected == 0 {
		fail(ctx, apperr.NotFound("User not found"))
		return
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		fail(ctx, storeError(err, "fetch user"))
		return
	}

	respond(ctx, http.StatusOK, "User role updated successfully", userResponse(user))
}
