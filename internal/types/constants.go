package types

import (
	"slices"
	"strings"
)

const (
	ContextUserKey     = "user"
	ContextDecisionKey = "decision"

	AccessTokenCookie = "accessToken"
)

// Role is used both as a user's global role and as a per-project role.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleProjectAdmin Role = "project_admin"
	RoleMember       Role = "member"
)

var AvailableRoles = []Role{RoleAdmin, RoleProjectAdmin, RoleMember}

func (r Role) Valid() bool {
	return slices.Contains(AvailableRoles, r)
}

// ProjectLevelAdmin reports whether a per-project role carries full authority
// over the project's tasks.
func (r Role) ProjectLevelAdmin() bool {
	return r == RoleAdmin || r == RoleProjectAdmin
}

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

var AvailableTaskStatuses = []string{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

var AvailableProjectStatuses = []string{ProjectStatusActive, ProjectStatusCompleted, ProjectStatusArchived}

const (
	AuthProviderCredentials = "credentials"
	AuthProviderGoogle      = "google"
	AuthProviderGithub      = "github"
)

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
)

// AllowedOrigins merges the development defaults with the configured client
// URL and any comma separated extra origins.
func AllowedOrigins(clientURL, extra string) []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL != "" {
		origins = append(origins, clientURL)
	}

	for _, origin := range strings.Split(extra, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" && !slices.Contains(origins, trimmed) {
			origins = append(origins, trimmed)
		}
	}

	return origins
}
