package permission

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/types"
)

type memberKey struct {
	project uuid.UUID
	member  uuid.UUID
}

// memoryLookup is an in-memory Lookup that counts every call.
type memoryLookup struct {
	members map[memberKey]types.Role
	tasks   map[uuid.UUID]models.Task
	calls   int
	err     error
}

func newMemoryLookup() *memoryLookup {
	return &memoryLookup{
		members: make(map[memberKey]types.Role),
		tasks:   make(map[uuid.UUID]models.Task),
	}
}

func (m *memoryLookup) Membership(_ context.Context, projectID, memberID uuid.UUID, roles []types.Role) (*models.ProjectMember, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	role, ok := m.members[memberKey{projectID, memberID}]
	if !ok || !slices.Contains(roles, role) {
		return nil, nil
	}
	return &models.ProjectMember{ProjectID: projectID, MemberID: memberID, Role: role}, nil
}

func (m *memoryLookup) Task(_ context.Context, projectID, taskID uuid.UUID) (*models.Task, error) {
	m.calls++
	task, ok := m.tasks[taskID]
	if !ok || task.ProjectID != projectID {
		return nil, nil
	}
	return &task, nil
}

func (m *memoryLookup) TaskProject(_ context.Context, taskID uuid.UUID) (uuid.UUID, bool, error) {
	m.calls++
	task, ok := m.tasks[taskID]
	return task.ProjectID, ok, nil
}

var (
	adminOnly        = []types.Role{types.RoleAdmin}
	projectAdminOnly = []types.Role{types.RoleProjectAdmin}
	adminOrMember    = []types.Role{types.RoleProjectAdmin, types.RoleMember}
)

// fixture is the scenario shared by the matrix below:
//
//   - alice: global member, project_admin on P, assigner of T
//   - bob: global member, member on P, assignee of T
//   - carol: global member, member on P, unrelated to T
//   - dave: global project_admin, not a member of P
//   - root: global admin, not a member of anything
type fixture struct {
	lookup                  *memoryLookup
	project, task           uuid.UUID
	alice, bob, carol, dave Subject
	root                    Subject
}

func newFixture() fixture {
	f := fixture{
		lookup:  newMemoryLookup(),
		project: uuid.New(),
		task:    uuid.New(),
		alice:   Subject{ID: uuid.New(), Role: types.RoleMember},
		bob:     Subject{ID: uuid.New(), Role: types.RoleMember},
		carol:   Subject{ID: uuid.New(), Role: types.RoleMember},
		dave:    Subject{ID: uuid.New(), Role: types.RoleProjectAdmin},
		root:    Subject{ID: uuid.New(), Role: types.RoleAdmin},
	}
	f.lookup.members[memberKey{f.project, f.alice.ID}] = types.RoleProjectAdmin
	f.lookup.members[memberKey{f.project, f.bob.ID}] = types.RoleMember
	f.lookup.members[memberKey{f.project, f.carol.ID}] = types.RoleMember
	f.lookup.tasks[f.task] = models.Task{
		BaseModel:    models.BaseModel{ID: f.task},
		ProjectID:    f.project,
		AssignedToID: f.bob.ID,
		AssignedByID: f.alice.ID,
	}
	return f
}

func TestAuthorizeMatrix(t *testing.T) {
	f := newFixture()
	projectTarget := Target{ProjectID: f.project.String()}
	taskTarget := Target{ProjectID: f.project.String(), TaskID: f.task.String()}
	taskOnly := Target{TaskID: f.task.String()}

	cases := []struct {
		name    string
		subject Subject
		allowed []types.Role
		target  Target
		op      Operation
		allow   bool
		reason  Reason
		basis   Basis
	}{
		{"admin bypass on unknown project", f.root, projectAdminOnly, Target{ProjectID: uuid.NewString()}, Write, true, ReasonNone, BasisGlobalAdmin},
		{"admin bypass on malformed id", f.root, projectAdminOnly, Target{ProjectID: "nope"}, Write, true, ReasonNone, BasisGlobalAdmin},
		{"malformed project id", f.alice, adminOrMember, Target{ProjectID: "nope"}, Read, false, ReasonInvalidProject, BasisNone},
		{"missing project id", f.alice, adminOrMember, Target{}, Read, false, ReasonInvalidProject, BasisNone},
		{"malformed task id", f.bob, adminOrMember, Target{ProjectID: f.project.String(), TaskID: "nope"}, Read, false, ReasonInvalidTask, BasisNone},
		{"global role not allowed", f.alice, projectAdminOnly, projectTarget, Write, false, ReasonRoleNotAllowed, BasisNone},
		{"admin-only route", f.dave, adminOnly, projectTarget, Write, false, ReasonRoleNotAllowed, BasisNone},
		{"non member", f.dave, projectAdminOnly, projectTarget, Read, false, ReasonNotMember, BasisNone},
		{"member reads project", f.bob, adminOrMember, projectTarget, Read, true, ReasonNone, BasisMember},
		{"project admin reads project", f.alice, adminOrMember, projectTarget, Read, true, ReasonNone, BasisProjectAdmin},
		{"project admin writes any task", f.alice, adminOrMember, taskTarget, Write, true, ReasonNone, BasisProjectAdmin},
		{"assignee reads task", f.bob, adminOrMember, taskTarget, Read, true, ReasonNone, BasisAssignee},
		{"assignee cannot write task", f.bob, adminOrMember, taskTarget, Write, false, ReasonNotAssigner, BasisNone},
		{"bystander cannot read task", f.carol, adminOrMember, taskTarget, Read, false, ReasonNotParticipant, BasisNone},
		{"project resolved from task", f.bob, adminOrMember, taskOnly, Read, true, ReasonNone, BasisAssignee},
		{"bystander via task only", f.carol, adminOrMember, taskOnly, Write, false, ReasonNotAssigner, BasisNone},
	}

	ev := NewEvaluator(f.lookup)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := ev.Authorize(context.Background(), c.subject, c.allowed, c.target, c.op)
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if d.Allowed != c.allow || d.Reason != c.reason || d.Basis != c.basis {
				t.Fatalf("decision = %+v, want allowed=%v reason=%s basis=%d", d, c.allow, c.reason, c.basis)
			}
			if c.allow && d.Err() != nil {
				t.Fatalf("allowed decision has error %v", d.Err())
			}
		})
	}
}

func TestAdminPerformsNoLookup(t *testing.T) {
	f := newFixture()
	ev := NewEvaluator(f.lookup)

	targets := []Target{
		{ProjectID: uuid.NewString()},
		{ProjectID: f.project.String(), TaskID: uuid.NewString()},
		{TaskID: "garbage"},
	}
	for _, target := range targets {
		for _, op := range []Operation{Read, Write} {
			d, err := ev.Authorize(context.Background(), f.root, projectAdminOnly, target, op)
			if err != nil || !d.Allowed {
				t.Fatalf("admin denied on %+v/%s: %+v %v", target, op, d, err)
			}
		}
	}
	if f.lookup.calls != 0 {
		t.Fatalf("admin bypass made %d lookups, want 0", f.lookup.calls)
	}
}

func TestNonMemberAlwaysDenied(t *testing.T) {
	f := newFixture()
	ev := NewEvaluator(f.lookup)
	outsiders := []Subject{
		{ID: uuid.New(), Role: types.RoleMember},
		{ID: uuid.New(), Role: types.RoleProjectAdmin},
	}
	roleSets := [][]types.Role{adminOnly, projectAdminOnly, adminOrMember}

	for _, s := range outsiders {
		for _, roles := range roleSets {
			for _, target := range []Target{{ProjectID: f.project.String()}, {ProjectID: f.project.String(), TaskID: f.task.String()}} {
				for _, op := range []Operation{Read, Write} {
					d, err := ev.Authorize(context.Background(), s, roles, target, op)
					if err != nil {
						t.Fatalf("Authorize: %v", err)
					}
					if d.Allowed {
						t.Fatalf("outsider %s allowed with roles %v on %+v", s.Role, roles, target)
					}
				}
			}
		}
	}
}

// An assignee who is not a project admin cannot delete a task someone else
// assigned to them.
func TestAssigneeCannotDelete(t *testing.T) {
	f := newFixture()
	ev := NewEvaluator(f.lookup)

	d, err := ev.Authorize(context.Background(), f.bob, adminOrMember, Target{ProjectID: f.project.String(), TaskID: f.task.String()}, Write)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("assignee was allowed to delete")
	}
	if !apperr.IsKind(d.Err(), apperr.KindUnauthorized) {
		t.Fatalf("Err() = %v, want unauthorized", d.Err())
	}
}

func TestMissingTask(t *testing.T) {
	f := newFixture()
	ev := NewEvaluator(f.lookup)

	_, err := ev.Authorize(context.Background(), f.bob, adminOrMember, Target{ProjectID: f.project.String(), TaskID: uuid.NewString()}, Read)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}

	_, err = ev.Authorize(context.Background(), f.bob, adminOrMember, Target{TaskID: uuid.NewString()}, Read)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("task-only err = %v, want not found", err)
	}
}

func TestLookupFailurePropagates(t *testing.T) {
	f := newFixture()
	f.lookup.err = errors.New("connection reset")
	ev := NewEvaluator(f.lookup)

	_, err := ev.Authorize(context.Background(), f.bob, adminOrMember, Target{ProjectID: f.project.String()}, Read)
	if err == nil || err.Error() != "connection reset" {
		t.Fatalf("err = %v, want lookup error", err)
	}
}

func TestDenyErrKinds(t *testing.T) {
	cases := map[Reason]apperr.Kind{
		ReasonInvalidProject: apperr.KindInvalidProject,
		ReasonInvalidTask:    apperr.KindInvalidTask,
		ReasonRoleNotAllowed: apperr.KindUnauthorized,
		ReasonNotMember:      apperr.KindUnauthorized,
		ReasonNotAssigner:    apperr.KindUnauthorized,
		ReasonNotParticipant: apperr.KindUnauthorized,
	}
	for reason, kind := range cases {
		if err := deny(reason).Err(); !apperr.IsKind(err, kind) {
			t.Errorf("%s: Err() = %v, want %s", reason, err, kind)
		}
	}
}
