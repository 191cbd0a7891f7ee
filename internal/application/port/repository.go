package port

import (
	"context"
	"errors"
	"time"

	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

var (
	// ErrNotFound is returned by repositories when the requested row is absent
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned when an optimistic status update loses a
	// race: the row's version no longer matches the one read by the caller
	ErrVersionConflict = errors.New("timesheet version conflict")

	// ErrDuplicateWeek is returned by TimesheetRepository.Create when another
	// non-rejected timesheet already holds the (tutor, course, week) slot. The
	// schema enforces this with a partial unique index, so the error is
	// authoritative even when two creates race past the advisory
	// ExistsActiveForWeek check.
	ErrDuplicateWeek = errors.New("active timesheet already exists for this week")
)

// TimesheetFilter narrows timesheet listings. Nil fields are ignored.
type TimesheetFilter struct {
	TutorID  *int64
	CourseID *int64
	Status   *workflow.Status
}

// TimesheetRepository defines persistence operations for Timesheet
type TimesheetRepository interface {
	Create(ctx context.Context, ts *entity.Timesheet) error
	GetByID(ctx context.Context, id int64) (*entity.Timesheet, error)

	// Update persists hours and description edits outside the workflow
	Update(ctx context.Context, ts *entity.Timesheet) error

	// UpdateStatus applies the workflow transition with an optimistic version
	// check, returning ErrVersionConflict when expectedVersion is stale
	UpdateStatus(ctx context.Context, id int64, status workflow.Status, expectedVersion int64, at time.Time) error

	// ExistsActiveForWeek reports whether a timesheet exists for the triple in
	// any status other than REJECTED
	ExistsActiveForWeek(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (bool, error)

	List(ctx context.Context, filter TimesheetFilter) ([]*entity.Timesheet, error)

	// ListPendingForLecturer returns TUTOR_CONFIRMED timesheets on courses the
	// lecturer teaches
	ListPendingForLecturer(ctx context.Context, lecturerID int64) ([]*entity.Timesheet, error)
}

// ApprovalRepository defines persistence operations for the append-only audit
// trail. Records are created once per accepted transition and never updated.
type ApprovalRepository interface {
	Create(ctx context.Context, record *entity.ApprovalRecord) error
	GetByTimesheetID(ctx context.Context, timesheetID int64) ([]*entity.ApprovalRecord, error)
}

// UserRepository defines lookup operations for users
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// CourseRepository defines lookup operations for courses
type CourseRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Course, error)
	LecturerTeachesCourse(ctx context.Context, lecturerID, courseID int64) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
