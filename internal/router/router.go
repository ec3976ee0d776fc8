package router

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/auth"
	"github.com/monocle-dev/taskboard/internal/config"
	"github.com/monocle-dev/taskboard/internal/handlers"
	"github.com/monocle-dev/taskboard/internal/middleware"
	"github.com/monocle-dev/taskboard/internal/permission"
	"github.com/monocle-dev/taskboard/internal/types"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config  config.Config
	DB      *gorm.DB
	Tokens  *auth.JWT
	Handler *handlers.Handler
	Logger  *slog.Logger
}

var (
	adminOnly = []types.Role{types.RoleAdmin}
	admins    = []types.Role{types.RoleProjectAdmin}
	everyone  = []types.Role{types.RoleProjectAdmin, types.RoleMember}
)

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())

	// Recovery sits inside the error renderer so panics come out as the
	// usual error envelope.
	r.Use(middleware.ErrorHandler(deps.Logger, deps.Config.IsProduction()))
	r.Use(gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		_ = ctx.Error(apperr.Internal("Something went wrong", fmt.Errorf("panic: %v", recovered)))
		ctx.Abort()
	}))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins(deps.Config.CORS.ClientURL, deps.Config.CORS.AllowedOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.NoRoute(func(ctx *gin.Context) {
		_ = ctx.Error(apperr.NotFound("Route not found"))
	})

	r.Static("/uploads", deps.Config.Storage.Root)

	h := deps.Handler
	ev := permission.NewEvaluator(permission.StoreLookup{DB: deps.DB})
	authenticate := middleware.AuthMiddleware(deps.Tokens, deps.DB)

	read := func(roles []types.Role) gin.HandlerFunc {
		return middleware.VerifyPermission(ev, permission.Read, roles...)
	}
	write := func(roles []types.Role) gin.HandlerFunc {
		return middleware.VerifyPermission(ev, permission.Write, roles...)
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws/:projectId", authenticate, read(everyone), h.WebSocket)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/logout", h.Logout)
			authGroup.GET("/me", authenticate, h.Me)
			authGroup.PATCH("/me", authenticate, h.UpdateMe)
		}

		admin := api.Group("/admin", authenticate, middleware.RequireGlobalRole(types.RoleAdmin))
		{
			admin.PATCH("/users/:userId/role", h.UpdateUserRole)
		}

		projects := api.Group("/projects", authenticate)
		{
			projects.GET("", h.ListProjects)
			projects.POST("", middleware.RequireGlobalRole(types.RoleProjectAdmin), h.CreateProject)
			projects.GET("/:projectId", read(everyone), h.GetProject)
			projects.PATCH("/:projectId", write(admins), h.UpdateProject)
			projects.DELETE("/:projectId", write(admins), h.DeleteProject)

			projects.GET("/:projectId/members", read(everyone), h.ListMembers)
			projects.POST("/:projectId/members", write(admins), h.AddMember)
			projects.PATCH("/:projectId/members", write(adminOnly), h.UpdateMemberRole)
			projects.DELETE("/:projectId/members", write(admins), h.RemoveMember)

			projects.GET("/:projectId/notes", read(everyone), h.ListNotes)
			projects.POST("/:projectId/notes", write(everyone), h.CreateNote)
			projects.GET("/:projectId/notes/:noteId", read(everyone), h.GetNote)
			projects.PATCH("/:projectId/notes/:noteId", write(everyone), h.UpdateNote)
			projects.DELETE("/:projectId/notes/:noteId", write(everyone), h.DeleteNote)

			projects.GET("/:projectId/tasks", read(everyone), h.ListTasks)
			projects.POST("/:projectId/tasks", write(admins), h.CreateTask)
			projects.GET("/:projectId/tasks/:taskId", read(everyone), h.GetTask)
			projects.PATCH("/:projectId/tasks/:taskId", write(admins), h.UpdateTask)
			projects.DELETE("/:projectId/tasks/:taskId", write(admins), h.DeleteTask)
		}

		// Subtask routes carry no project; the evaluator resolves it from
		// the task.
		tasks := api.Group("/tasks", authenticate)
		{
			tasks.GET("/:taskId/subtasks", read(everyone), h.ListSubTasks)
			tasks.POST("/:taskId/subtasks", read(everyone), h.CreateSubTask)
			tasks.PATCH("/:taskId/subtasks/:subtaskId", read(everyone), h.UpdateSubTask)
			tasks.DELETE("/:taskId/subtasks/:subtaskId", write(everyone), h.DeleteSubTask)
		}
	}

	return r
}
