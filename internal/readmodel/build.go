package readmodel

import (
	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/models"
)

type idSet map[uuid.UUID]struct{}

func newIDSet() idSet { return make(idSet) }

func (s idSet) add(ids ...uuid.UUID) {
	for _, id := range ids {
		if id != uuid.Nil {
			s[id] = struct{}{}
		}
	}
}

func (s idSet) list() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

type userIndex map[uuid.UUID]models.User

// profile includes the avatar; contact is name and email only. Both return
// nil when the user no longer exists.
func (u userIndex) profile(id uuid.UUID) *UserSummary {
	user, ok := u[id]
	if !ok {
		return nil
	}
	return &UserSummary{ID: user.ID, Name: user.Name, Email: user.Email, Avatar: user.Avatar}
}

func (u userIndex) contact(id uuid.UUID) *UserSummary {
	user, ok := u[id]
	if !ok {
		return nil
	}
	return &UserSummary{ID: user.ID, Name: user.Name, Email: user.Email}
}

func taskIDs(tasks []models.Task) []uuid.UUID {
	ids := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func memberViews(members []models.ProjectMember, users userIndex) []MemberView {
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, MemberView{
			ProjectID: m.ProjectID,
			MemberID:  m.MemberID,
			Role:      m.Role,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			Member:    users.profile(m.MemberID),
		})
	}
	return views
}

func noteViews(notes []models.ProjectNote, users userIndex) []NoteView {
	views := make([]NoteView, 0, len(notes))
	for _, n := range notes {
		views = append(views, NoteView{
			ID:        n.ID,
			ProjectID: n.ProjectID,
			Content:   n.Content,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.UpdatedAt,
			CreatedBy: users.contact(n.CreatedByID),
		})
	}
	return views
}

func taskViews(tasks []models.Task, users userIndex, subtasks map[uuid.UUID][]models.SubTask) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		attachments := make([]models.Attachment, len(t.Attachments))
		copy(attachments, t.Attachments)

		views = append(views, TaskView{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			ProjectID:   t.ProjectID,
			Status:      t.Status,
			Attachments: attachments,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
			AssignedTo:  users.contact(t.AssignedToID),
			AssignedBy:  users.contact(t.AssignedByID),
			SubTasks:    subTaskViews(subtasks[t.ID]),
		})
	}
	return views
}

func subTaskViews(subtasks []models.SubTask) []SubTaskView {
	views := make([]SubTaskView, 0, len(subtasks))
	for _, s := range subtasks {
		views = append(views, SubTaskView{ID: s.ID, Title: s.Title, IsCompleted: s.IsCompleted})
	}
	return views
}
