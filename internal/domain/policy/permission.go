package policy

import (
	"context"

	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// CourseOwnership answers whether a lecturer teaches a course. The fact comes
// from the course collaborator; the evaluator treats any lookup error as a
// denial.
type CourseOwnership interface {
	LecturerTeachesCourse(ctx context.Context, lecturerID, courseID int64) (bool, error)
}

// Evaluator decides whether an actor may perform an action on, or view, a
// specific timesheet. It is a pure predicate over the actor's role and
// ownership facts: a denial never mutates anything and fails closed on any
// lookup error.
type Evaluator struct {
	machine *workflow.Machine
	courses CourseOwnership
}

// NewEvaluator creates a permission evaluator backed by the transition rule
// table and the course-ownership collaborator
func NewEvaluator(machine *workflow.Machine, courses CourseOwnership) *Evaluator {
	return &Evaluator{
		machine: machine,
		courses: courses,
	}
}

// CanPerform reports whether the actor may request the given action on the
// timesheet.
//
// Role gating uses the transition table's role column for the timesheet's
// current status when the pair is in the table. For pairs outside the table
// the action-level role union applies instead, so that a capable role asking
// at the wrong moment surfaces as an invalid transition downstream rather
// than a permission denial.
func (e *Evaluator) CanPerform(ctx context.Context, actor *entity.User, action workflow.Action, ts *entity.Timesheet) bool {
	if actor == nil || ts == nil || !action.IsValid() {
		return false
	}

	roles := e.machine.AllowedRoles(ts.Status, action)
	if roles == nil {
		roles = e.machine.RolesForAction(action)
	}
	if !roleAllowed(roles, actor.Role) {
		return false
	}

	switch actor.Role {
	case workflow.RoleAdmin:
		// Admin authority is a superset wherever the table names ADMIN;
		// the role check above already excluded tutor-reserved actions.
		return true
	case workflow.RoleTutor:
		return ts.IsOwnedBy(actor.ID)
	case workflow.RoleLecturer:
		teaches, err := e.courses.LecturerTeachesCourse(ctx, actor.ID, ts.CourseID)
		if err != nil {
			return false
		}
		return teaches
	default:
		return false
	}
}

// CanView reports whether the actor may read the timesheet and its approval
// history: admins always, lecturers for courses they teach, tutors for their
// own timesheets.
func (e *Evaluator) CanView(ctx context.Context, actor *entity.User, ts *entity.Timesheet) bool {
	if actor == nil || ts == nil {
		return false
	}

	switch actor.Role {
	case workflow.RoleAdmin:
		return true
	case workflow.RoleLecturer:
		teaches, err := e.courses.LecturerTeachesCourse(ctx, actor.ID, ts.CourseID)
		if err != nil {
			return false
		}
		return teaches
	case workflow.RoleTutor:
		return ts.IsOwnedBy(actor.ID)
	default:
		return false
	}
}

// CanCreateFor reports whether the creator may create a timesheet for the
// given tutor on the given course. Only lecturers and admins create
// timesheets; a lecturer only for tutors on courses they teach.
func (e *Evaluator) CanCreateFor(ctx context.Context, creator *entity.User, tutor *entity.User, courseID int64) bool {
	if creator == nil || tutor == nil {
		return false
	}

	switch creator.Role {
	case workflow.RoleAdmin:
		return true
	case workflow.RoleLecturer:
		if tutor.Role != workflow.RoleTutor {
			return false
		}
		teaches, err := e.courses.LecturerTeachesCourse(ctx, creator.ID, courseID)
		if err != nil {
			return false
		}
		return teaches
	default:
		return false
	}
}

// CanEdit reports whether the actor may change hours or description directly.
// Edits bypass the workflow and are only allowed while the status is
// re-editable, by the owning tutor, a lecturer of the course, or an admin.
func (e *Evaluator) CanEdit(ctx context.Context, actor *entity.User, ts *entity.Timesheet) bool {
	if ts == nil || !ts.IsEditable() {
		return false
	}
	return e.CanView(ctx, actor, ts)
}

func roleAllowed(roles []workflow.Role, role workflow.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
