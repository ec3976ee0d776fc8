// Package readmodel assembles denormalized views from the stored entities.
//
// Every view is built from a fixed number of batched queries keyed by the
// collected ID sets, never one query per row. Joins are read only. A
// relation with no matching rows comes back as an empty list; only a
// missing primary entity is an error.
package readmodel

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/models"
	"gorm.io/gorm"
)

const taskOrder = "updated_at DESC, created_at DESC"

type Assembler struct {
	db *gorm.DB
}

func NewAssembler(db *gorm.DB) *Assembler {
	return &Assembler{db: db}
}

// TaskQuery selects tasks within one project. A non-zero ParticipantID keeps
// only tasks the user is assignee or assigner of.
type TaskQuery struct {
	ProjectID     uuid.UUID
	ParticipantID uuid.UUID
}

func (a *Assembler) Project(ctx context.Context, projectID uuid.UUID) (ProjectView, error) {
	var project models.Project

	err := a.db.WithContext(ctx).Where("id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProjectView{}, apperr.NotFound("Project not found")
	}
	if err != nil {
		return ProjectView{}, fmt.Errorf("load project: %w", err)
	}

	views, err := a.assembleProjects(ctx, []models.Project{project})
	if err != nil {
		return ProjectView{}, err
	}
	return views[0], nil
}

// ProjectsForMember returns every project the user holds a membership in,
// newest first.
func (a *Assembler) ProjectsForMember(ctx context.Context, userID uuid.UUID) ([]ProjectView, error) {
	var projectIDs []uuid.UUID

	err := a.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("member_id = ?", userID).
		Pluck("project_id", &projectIDs).Error
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	if len(projectIDs) == 0 {
		return []ProjectView{}, nil
	}

	var projects []models.Project
	err = a.db.WithContext(ctx).Where("id IN ?", projectIDs).Order("created_at DESC").Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	return a.assembleProjects(ctx, projects)
}

func (a *Assembler) Task(ctx context.Context, projectID, taskID uuid.UUID) (TaskView, error) {
	var task models.Task

	err := a.db.WithContext(ctx).Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TaskView{}, apperr.NotFound("Task not found")
	}
	if err != nil {
		return TaskView{}, fmt.Errorf("load task: %w", err)
	}

	views, err := a.assembleTasks(ctx, []models.Task{task})
	if err != nil {
		return TaskView{}, err
	}
	return views[0], nil
}

func (a *Assembler) Tasks(ctx context.Context, q TaskQuery) ([]TaskView, error) {
	query := a.db.WithContext(ctx).Where("project_id = ?", q.ProjectID)
	if q.ParticipantID != uuid.Nil {
		query = query.Where("(assigned_to_id = ? OR assigned_by_id = ?)", q.ParticipantID, q.ParticipantID)
	}

	var tasks []models.Task
	if err := query.Order(taskOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	return a.assembleTasks(ctx, tasks)
}

func (a *Assembler) Members(ctx context.Context, projectID uuid.UUID) ([]MemberView, error) {
	var members []models.ProjectMember

	err := a.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at ASC").Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	ids := newIDSet()
	for _, m := range members {
		ids.add(m.MemberID)
	}
	users, err := a.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	return memberViews(members, users), nil
}

func (a *Assembler) Member(ctx context.Context, projectID, memberID uuid.UUID) (MemberView, error) {
	var member models.ProjectMember

	err := a.db.WithContext(ctx).Where("project_id = ? AND member_id = ?", projectID, memberID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MemberView{}, apperr.NotFound("Project member not found")
	}
	if err != nil {
		return MemberView{}, fmt.Errorf("load member: %w", err)
	}

	ids := newIDSet()
	ids.add(member.MemberID)
	users, err := a.loadUsers(ctx, ids)
	if err != nil {
		return MemberView{}, err
	}

	return memberViews([]models.ProjectMember{member}, users)[0], nil
}

func (a *Assembler) Notes(ctx context.Context, projectID uuid.UUID) ([]NoteView, error) {
	var notes []models.ProjectNote

	err := a.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at DESC").Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	return a.assembleNotes(ctx, notes)
}

func (a *Assembler) Note(ctx context.Context, projectID, noteID uuid.UUID) (NoteView, error) {
	var note models.ProjectNote

	err := a.db.WithContext(ctx).Where("id = ? AND project_id = ?", noteID, projectID).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NoteView{}, apperr.NotFound("Note not found")
	}
	if err != nil {
		return NoteView{}, fmt.Errorf("load note: %w", err)
	}

	views, err := a.assembleNotes(ctx, []models.ProjectNote{note})
	if err != nil {
		return NoteView{}, err
	}
	return views[0], nil
}

func (a *Assembler) SubTasks(ctx context.Context, taskID uuid.UUID) ([]SubTaskView, error) {
	byTask, err := a.loadSubTasks(ctx, []uuid.UUID{taskID})
	if err != nil {
		return nil, err
	}
	return subTaskViews(byTask[taskID]), nil
}

func (a *Assembler) assembleProjects(ctx context.Context, projects []models.Project) ([]ProjectView, error) {
	projectIDs := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		projectIDs[i] = p.ID
	}

	var members []models.ProjectMember
	if err := a.db.WithContext(ctx).Where("project_id IN ?", projectIDs).Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	var notes []models.ProjectNote
	if err := a.db.WithContext(ctx).Where("project_id IN ?", projectIDs).Order("created_at DESC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	var tasks []models.Task
	if err := a.db.WithContext(ctx).Where("project_id IN ?", projectIDs).Order(taskOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	ids := newIDSet()
	for _, p := range projects {
		ids.add(p.CreatedByID)
	}
	for _, m := range members {
		ids.add(m.MemberID)
	}
	for _, n := range notes {
		ids.add(n.CreatedByID)
	}
	for _, t := range tasks {
		ids.add(t.AssignedToID, t.AssignedByID)
	}

	users, err := a.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	subtasks, err := a.loadSubTasks(ctx, taskIDs(tasks))
	if err != nil {
		return nil, err
	}

	membersByProject := make(map[uuid.UUID][]models.ProjectMember)
	for _, m := range members {
		membersByProject[m.ProjectID] = append(membersByProject[m.ProjectID], m)
	}
	notesByProject := make(map[uuid.UUID][]models.ProjectNote)
	for _, n := range notes {
		notesByProject[n.ProjectID] = append(notesByProject[n.ProjectID], n)
	}
	tasksByProject := make(map[uuid.UUID][]models.Task)
	for _, t := range tasks {
		tasksByProject[t.ProjectID] = append(tasksByProject[t.ProjectID], t)
	}

	views := make([]ProjectView, len(projects))
	for i, p := range projects {
		views[i] = ProjectView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
			CreatedBy:   users.profile(p.CreatedByID),
			Members:     memberViews(membersByProject[p.ID], users),
			Notes:       noteViews(notesByProject[p.ID], users),
			Tasks:       taskViews(tasksByProject[p.ID], users, subtasks),
		}
	}

	return views, nil
}

func (a *Assembler) assembleTasks(ctx context.Context, tasks []models.Task) ([]TaskView, error) {
	ids := newIDSet()
	for _, t := range tasks {
		ids.add(t.AssignedToID, t.AssignedByID)
	}

	users, err := a.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	subtasks, err := a.loadSubTasks(ctx, taskIDs(tasks))
	if err != nil {
		return nil, err
	}

	return taskViews(tasks, users, subtasks), nil
}

func (a *Assembler) assembleNotes(ctx context.Context, notes []models.ProjectNote) ([]NoteView, error) {
	ids := newIDSet()
	for _, n := range notes {
		ids.add(n.CreatedByID)
	}

	users, err := a.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	return noteViews(notes, users), nil
}

func (a *Assembler) loadUsers(ctx context.Context, ids idSet) (userIndex, error) {
	index := make(userIndex, len(ids))
	if len(ids) == 0 {
		return index, nil
	}

	var users []models.User
	err := a.db.WithContext(ctx).
		Select("id", "name", "email", "avatar").
		Where("id IN ?", ids.list()).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	for _, u := range users {
		index[u.ID] = u
	}
	return index, nil
}

func (a *Assembler) loadSubTasks(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID][]models.SubTask, error) {
	byTask := make(map[uuid.UUID][]models.SubTask)
	if len(taskIDs) == 0 {
		return byTask, nil
	}

	var subtasks []models.SubTask
	err := a.db.WithContext(ctx).
		Select("id", "task_id", "title", "is_completed").
		Where("task_id IN ?", taskIDs).
		Order("created_at ASC").
		Find(&subtasks).Error
	if err != nil {
		return nil, fmt.Errorf("load subtasks: %w", err)
	}

	for _, s := range subtasks {
		byTask[s.TaskID] = append(byTask[s.TaskID], s)
	}
	return byTask, nil
}
