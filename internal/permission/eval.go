package permission

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/monocle-dev/taskboard/internal/apperr"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/types"
)

// Operation distinguishes reads from mutations. Only task targets care.
type Operation int

const (
	Read Operation = iota
	Write
)

func (o Operation) String() string {
	if o == Write {
		return "write"
	}
	return "read"
}

// Reason describes why an authorization check was denied.
type Reason int

const (
	ReasonNone Reason = iota

	// ReasonInvalidProject means the project ID is not a valid identifier.
	ReasonInvalidProject

	// ReasonInvalidTask means the task ID is not a valid identifier.
	ReasonInvalidTask

	// ReasonRoleNotAllowed means the subject's global role is not one of
	// the route's allowed roles.
	ReasonRoleNotAllowed

	// ReasonNotMember means no membership row with an allowed role exists.
	ReasonNotMember

	// ReasonNotAssigner means a write on a task by someone who neither
	// administers the project nor assigned the task.
	ReasonNotAssigner

	// ReasonNotParticipant means a read on a task by someone who is
	// neither its assignee nor its assigner.
	ReasonNotParticipant
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidProject:
		return "invalid project"
	case ReasonInvalidTask:
		return "invalid task"
	case ReasonRoleNotAllowed:
		return "role not allowed"
	case ReasonNotMember:
		return "not a member"
	case ReasonNotAssigner:
		return "not the assigner"
	case ReasonNotParticipant:
		return "not a participant"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Basis records which rule granted an allowed decision.
type Basis int

const (
	BasisNone Basis = iota
	BasisGlobalAdmin
	BasisProjectAdmin
	BasisMember
	BasisAssigner
	BasisAssignee
)

// FullProjectAccess reports whether the grant extends to every task in the
// project rather than just the subject's own.
func (b Basis) FullProjectAccess() bool {
	return b == BasisGlobalAdmin || b == BasisProjectAdmin
}

type Decision struct {
	Allowed bool
	Reason  Reason
	Basis   Basis

	// Role is the per-project role that satisfied step 4. Empty for the
	// global admin bypass.
	Role types.Role
}

func allow(basis Basis, role types.Role) Decision {
	return Decision{Allowed: true, Basis: basis, Role: role}
}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into the error rendered to the caller. It returns
// nil for allowed decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonInvalidProject:
		return apperr.InvalidProject()
	case ReasonInvalidTask:
		return apperr.InvalidTask()
	default:
		return apperr.Unauthorized("Unauthorized action")
	}
}

// Subject is the slice of a user the evaluator needs.
type Subject struct {
	ID   uuid.UUID
	Role types.Role
}

// Target names what is being acted on. IDs arrive unparsed, straight from
// the request, because validating them is part of the decision. ProjectID
// may be empty when TaskID is set; the project is then taken from the task.
type Target struct {
	ProjectID string
	TaskID    string
}

// Lookup is the read access the evaluator needs. Absent rows are reported as
// nil with a nil error.
type Lookup interface {
	Membership(ctx context.Context, projectID, memberID uuid.UUID, roles []types.Role) (*models.ProjectMember, error)
	Task(ctx context.Context, projectID, taskID uuid.UUID) (*models.Task, error)
	TaskProject(ctx context.Context, taskID uuid.UUID) (uuid.UUID, bool, error)
}

type Evaluator struct {
	lookup Lookup
}

func NewEvaluator(lookup Lookup) *Evaluator {
	return &Evaluator{lookup: lookup}
}

// Authorize evaluates one request. A non-nil error means the decision could
// not be made (store failure, missing task) and is returned as-is.
func (e *Evaluator) Authorize(ctx context.Context, subject Subject, allowed []types.Role, target Target, op Operation) (Decision, error) {
	// A global admin does not need a permission, they can do everything.
	if subject.Role == types.RoleAdmin {
		return allow(BasisGlobalAdmin, ""), nil
	}

	if subject.ID == uuid.Nil {
		return Decision{}, apperr.Unauthenticated("Unauthorized request")
	}

	var projectID uuid.UUID
	if target.ProjectID != "" {
		id, err := uuid.Parse(target.ProjectID)
		if err != nil {
			return deny(ReasonInvalidProject), nil
		}
		projectID = id
	}

	var taskID uuid.UUID
	hasTask := target.TaskID != ""
	if hasTask {
		id, err := uuid.Parse(target.TaskID)
		if err != nil {
			return deny(ReasonInvalidTask), nil
		}
		taskID = id
	}

	if projectID == uuid.Nil {
		if !hasTask {
			return deny(ReasonInvalidProject), nil
		}
		id, found, err := e.lookup.TaskProject(ctx, taskID)
		if err != nil {
			return Decision{}, err
		}
		if !found {
			return Decision{}, apperr.NotFound("Task not found")
		}
		projectID = id
	}

	if !slices.Contains(allowed, subject.Role) {
		return deny(ReasonRoleNotAllowed), nil
	}

	membership, err := e.lookup.Membership(ctx, projectID, subject.ID, allowed)
	if err != nil {
		return Decision{}, err
	}
	if membership == nil {
		return deny(ReasonNotMember), nil
	}

	if membership.Role.ProjectLevelAdmin() {
		return allow(BasisProjectAdmin, membership.Role), nil
	}
	if !hasTask {
		return allow(BasisMember, membership.Role), nil
	}

	task, err := e.lookup.Task(ctx, projectID, taskID)
	if err != nil {
		return Decision{}, err
	}
	if task == nil {
		return Decision{}, apperr.NotFound("Task not found")
	}

	if op == Write {
		if task.AssignedByID == subject.ID {
			return allow(BasisAssigner, membership.Role), nil
		}
		return deny(ReasonNotAssigner), nil
	}

	switch subject.ID {
	case task.AssignedByID:
		return allow(BasisAssigner, membership.Role), nil
	case task.AssignedToID:
		return allow(BasisAssignee, membership.Role), nil
	}
	return deny(ReasonNotParticipant), nil
}
