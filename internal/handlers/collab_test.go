package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/readmodel"
	"github.com/monocle-dev/taskboard/internal/testutil"
	"github.com/monocle-dev/taskboard/internal/types"
)

func TestSubTasks(t *testing.T) {
	h := newHarness(t)
	w := newTaskWorld(t, h)
	task := testutil.CreateTask(t, h.db, w.project, "Launch", w.bob, w.alice)

	base := "/api/tasks/" + task.ID.String() + "/subtasks"

	expect(t, h.do(http.MethodPost, base, &w.carol, map[string]string{"title": "Peek"}), http.StatusForbidden)
	expect(t, h.do(http.MethodPost, base, &w.bob, map[string]string{"title": "F"}), http.StatusUnprocessableEntity)

	env := expect(t, h.do(http.MethodPost, base, &w.bob, map[string]string{"title": "Fuel up"}), http.StatusCreated)
	var created readmodel.SubTaskView
	decodeData(t, env, &created)
	if created.Title != "Fuel up" || created.IsCompleted {
		t.Errorf("created = %+v", created)
	}

	item := base + "/" + created.ID.String()

	env = expect(t, h.do(http.MethodPatch, item, &w.bob, map[string]bool{"isCompleted": true}), http.StatusOK)
	var toggled readmodel.SubTaskView
	decodeData(t, env, &toggled)
	if !toggled.IsCompleted {
		t.Error("isCompleted not set")
	}

	env = expect(t, h.do(http.MethodPatch, item, &w.bob, map[string]bool{"isCompleted": false}), http.StatusOK)
	decodeData(t, env, &toggled)
	if toggled.IsCompleted {
		t.Error("explicit false was ignored")
	}

	env = expect(t, h.do(http.MethodGet, base, &w.bob, nil), http.StatusOK)
	var listed []readmodel.SubTaskView
	decodeData(t, env, &listed)
	if len(listed) != 1 {
		t.Errorf("listed = %+v", listed)
	}

	// Deleting needs the assigner or a project admin.
	expect(t, h.do(http.MethodDelete, item, &w.bob, nil), http.StatusForbidden)
	expect(t, h.do(http.MethodDelete, item, &w.alice, nil), http.StatusOK)
	expect(t, h.do(http.MethodDelete, item, &w.alice, nil), http.StatusNotFound)

	expect(t, h.do(http.MethodGet, "/api/tasks/bad-id/subtasks", &w.bob, nil), http.StatusBadRequest)
}

func TestNotes(t *testing.T) {
	h := newHarness(t)
	w := newTaskWorld(t, h)

	base := "/api/projects/" + w.project.ID.String() + "/notes"

	env := expect(t, h.do(http.MethodPost, base, &w.bob, map[string]string{"content": "   too short   "}), http.StatusUnprocessableEntity)
	if len(env.Errors) != 1 || env.Errors[0].Field != "content" {
		t.Errorf("errors = %+v", env.Errors)
	}
	expect(t, h.do(http.MethodPost, base, &w.bob, map[string]string{"content": strings.Repeat("a", 1001)}), http.StatusUnprocessableEntity)

	env = expect(t, h.do(http.MethodPost, base, &w.bob, map[string]string{"content": "  Countdown starts at nine  "}), http.StatusCreated)
	var note readmodel.NoteView
	decodeData(t, env, &note)
	if note.Content != "Countdown starts at nine" {
		t.Errorf("content = %q, want trimmed", note.Content)
	}
	if note.CreatedBy == nil || note.CreatedBy.Email != w.bob.Email {
		t.Errorf("createdBy = %+v", note.CreatedBy)
	}

	item := base + "/" + note.ID.String()
	edit := map[string]string{"content": "Countdown starts at ten"}

	expect(t, h.do(http.MethodPatch, item, &w.carol, edit), http.StatusForbidden)
	expect(t, h.do(http.MethodPatch, item, &w.bob, edit), http.StatusOK)

	env = expect(t, h.do(http.MethodGet, item, &w.carol, nil), http.StatusOK)
	decodeData(t, env, &note)
	if note.Content != "Countdown starts at ten" {
		t.Errorf("content = %q", note.Content)
	}

	env = expect(t, h.do(http.MethodGet, base, &w.carol, nil), http.StatusOK)
	var notes []readmodel.NoteView
	decodeData(t, env, &notes)
	if len(notes) != 1 {
		t.Errorf("notes = %+v", notes)
	}

	expect(t, h.do(http.MethodDelete, item, &w.alice, nil), http.StatusOK)
	expect(t, h.do(http.MethodGet, item, &w.alice, nil), http.StatusNotFound)
}

func TestMembers(t *testing.T) {
	h := newHarness(t)
	w := newTaskWorld(t, h)
	dave := testutil.CreateUser(t, h.db, "dave", types.RoleMember)
	root := testutil.CreateUser(t, h.db, "root", types.RoleAdmin)

	base := "/api/projects/" + w.project.ID.String() + "/members"

	expect(t, h.do(http.MethodPost, base, &w.bob, map[string]string{"memberId": dave.ID.String()}), http.StatusForbidden)
	expect(t, h.do(http.MethodPost, base, &w.alice, map[string]string{"memberId": "nope"}), http.StatusBadRequest)
	expect(t, h.do(http.MethodPost, base, &w.alice, map[string]string{"memberId": dave.ID.String(), "role": "owner"}), http.StatusUnprocessableEntity)

	env := expect(t, h.do(http.MethodPost, base, &w.alice, map[string]string{"memberId": dave.ID.String()}), http.StatusCreated)
	var added readmodel.MemberView
	decodeData(t, env, &added)
	if added.MemberID != dave.ID || added.Role != types.RoleMember || added.Member == nil || added.Member.Name != "dave" {
		t.Errorf("added = %+v", added)
	}

	expect(t, h.do(http.MethodPost, base, &w.alice, map[string]string{"memberId": dave.ID.String()}), http.StatusConflict)

	env = expect(t, h.do(http.MethodGet, base, &dave, nil), http.StatusOK)
	var members []readmodel.MemberView
	decodeData(t, env, &members)
	if len(members) != 4 {
		t.Errorf("members = %d, want 4", len(members))
	}

	promote := map[string]string{"memberId": dave.ID.String(), "role": "project_admin"}

	// Changing a per-project role is reserved to global admins.
	expect(t, h.do(http.MethodPatch, base, &w.alice, promote), http.StatusForbidden)
	expect(t, h.do(http.MethodPatch, base, &root, promote), http.StatusOK)

	var row models.ProjectMember
	if err := h.db.Where("project_id = ? AND member_id = ?", w.project.ID, dave.ID).First(&row).Error; err != nil {
		t.Fatalf("load membership: %v", err)
	}
	if row.Role != types.RoleProjectAdmin {
		t.Errorf("role = %q", row.Role)
	}

	remove := map[string]string{"memberId": dave.ID.String()}
	expect(t, h.do(http.MethodDelete, base, &w.alice, remove), http.StatusOK)
	expect(t, h.do(http.MethodDelete, base, &w.alice, remove), http.StatusNotFound)
	expect(t, h.do(http.MethodGet, "/api/projects/"+w.project.ID.String(), &dave, nil), http.StatusForbidden)
}
