// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/monocle-dev/taskboard/db"
	"github.com/monocle-dev/taskboard/internal/config"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/types"
	"gorm.io/gorm"
)

// OpenDB returns a migrated sqlite database living in the test's temp dir.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.ConnectDatabase(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.MigrateDatabase(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return gdb
}

func CreateUser(t *testing.T, gdb *gorm.DB, name string, role types.Role) models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Avatar:       "https://avatars.example.com/" + name,
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func CreateProject(t *testing.T, gdb *gorm.DB, name string, creator models.User) models.Project {
	t.Helper()
	project := models.Project{
		Name:        name,
		Description: name + " description",
		Status:      types.ProjectStatusActive,
		CreatedByID: creator.ID,
	}
	if err := gdb.Create(&project).Error; err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	AddMember(t, gdb, project, creator, types.RoleProjectAdmin)
	return project
}

func AddMember(t *testing.T, gdb *gorm.DB, project models.Project, user models.User, role types.Role) {
	t.Helper()
	member := models.ProjectMember{ProjectID: project.ID, MemberID: user.ID, Role: role}
	if err := gdb.Create(&member).Error; err != nil {
		t.Fatalf("add member %s: %v", user.Name, err)
	}
}

func CreateTask(t *testing.T, gdb *gorm.DB, project models.Project, name string, assignee, assigner models.User, attachments ...models.Attachment) models.Task {
	t.Helper()
	task := models.Task{
		Name:         name,
		Description:  name + " description",
		ProjectID:    project.ID,
		AssignedToID: assignee.ID,
		AssignedByID: assigner.ID,
		Status:       types.TaskStatusTodo,
		Attachments:  attachments,
	}
	if err := gdb.Create(&task).Error; err != nil {
		t.Fatalf("create task %s: %v", name, err)
	}
	return task
}

func CreateSubTask(t *testing.T, gdb *gorm.DB, task models.Task, title string, creator models.User) models.SubTask {
	t.Helper()
	subtask := models.SubTask{Title: title, TaskID: task.ID, CreatedByID: creator.ID}
	if err := gdb.Create(&subtask).Error; err != nil {
		t.Fatalf("create subtask %s: %v", title, err)
	}
	return subtask
}

func CreateNote(t *testing.T, gdb *gorm.DB, project models.Project, author models.User, content string) models.ProjectNote {
	t.Helper()
	note := models.ProjectNote{ProjectID: project.ID, CreatedByID: author.ID, Content: content}
	if err := gdb.Create(&note).Error; err != nil {
		t.Fatalf("create note: %v", err)
	}
	return note
}

func Count(t *testing.T, gdb *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}
