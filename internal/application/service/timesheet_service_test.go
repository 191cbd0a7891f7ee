package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/policy"
	"github.com/usyd-catams/catams/internal/domain/rules"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// Thursday 2025-10-30; the Monday of that week is 2025-10-27.
var timesheetTestNow = time.Date(2025, 10, 30, 12, 0, 0, 0, time.UTC)

var testWeekMonday = time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC)

type timesheetFixture struct {
	timesheets *mockTimesheetRepo
	users      *mockUserRepo
	courses    *mockCourseRepo
	service    TimesheetService
}

func newTimesheetFixture() *timesheetFixture {
	f := &timesheetFixture{
		timesheets: &mockTimesheetRepo{},
		users: &mockUserRepo{users: map[int64]*entity.User{
			3:  {ID: 3, Name: "Tina Tutor", Email: "tina@uni.edu", Role: workflow.RoleTutor, Active: true},
			4:  {ID: 4, Name: "Tom Tutor", Email: "tom@uni.edu", Role: workflow.RoleTutor, Active: true},
			20: {ID: 20, Name: "Len Lecturer", Email: "len@uni.edu", Role: workflow.RoleLecturer, Active: true},
			21: {ID: 21, Name: "Lois Lecturer", Email: "lois@uni.edu", Role: workflow.RoleLecturer, Active: true},
			99: {ID: 99, Name: "Ada Admin", Email: "ada@uni.edu", Role: workflow.RoleAdmin, Active: true},
		}},
		courses: &mockCourseRepo{courses: map[int64]*entity.Course{
			1: {ID: 1, Code: "COMP1511", Name: "Programming Fundamentals", LecturerID: 20, Active: true},
			2: {ID: 2, Code: "COMP2017", Name: "Systems Programming", LecturerID: 21, Active: true},
		}},
	}

	machine := workflow.NewMachine()
	clock := fixedClock{now: timesheetTestNow}
	f.service = NewTimesheetService(
		f.timesheets,
		f.users,
		f.courses,
		policy.NewEvaluator(machine, f.courses),
		rules.NewValidator(f.timesheets, clock, rules.DefaultHoursBounds()),
		clock,
		&mockLogger{},
	)
	return f
}

func validCreateRequest() CreateTimesheetRequest {
	return CreateTimesheetRequest{
		TutorID:       3,
		CourseID:      1,
		WeekStartDate: testWeekMonday,
		Hours:         10,
		Description:   "Tutorials and marking",
	}
}

func TestTimesheetService_Create_LecturerForOwnCourse(t *testing.T) {
	f := newTimesheetFixture()

	var created *entity.Timesheet
	f.timesheets.createFunc = func(ctx context.Context, ts *entity.Timesheet) error {
		ts.ID = 7
		created = ts
		return nil
	}

	ts, err := f.service.Create(context.Background(), 20, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(7), ts.ID)
	assert.Equal(t, workflow.StatusDraft, ts.Status)
	assert.Equal(t, int64(20), ts.CreatedBy)
	assert.Equal(t, timesheetTestNow, ts.CreatedAt)
	require.NotNil(t, created)
	assert.Equal(t, int64(3), created.TutorID)
}

func TestTimesheetService_Create_LecturerWrongCourseForbidden(t *testing.T) {
	f := newTimesheetFixture()

	req := validCreateRequest()
	req.CourseID = 2 // taught by lecturer 21, not 20

	_, err := f.service.Create(context.Background(), 20, req)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTimesheetService_Create_AdminForAnyCourse(t *testing.T) {
	f := newTimesheetFixture()

	req := validCreateRequest()
	req.CourseID = 2

	_, err := f.service.Create(context.Background(), 99, req)
	assert.NoError(t, err)
}

func TestTimesheetService_Create_ValidationFailures(t *testing.T) {
	f := newTimesheetFixture()

	tests := []struct {
		name   string
		mutate func(*CreateTimesheetRequest)
		reason rules.Reason
	}{
		{
			name:   "non-monday week start",
			mutate: func(r *CreateTimesheetRequest) { r.WeekStartDate = testWeekMonday.AddDate(0, 0, 1) },
			reason: rules.ReasonNonMondayDate,
		},
		{
			name:   "future week start",
			mutate: func(r *CreateTimesheetRequest) { r.WeekStartDate = testWeekMonday.AddDate(0, 0, 14) },
			reason: rules.ReasonFutureDate,
		},
		{
			name:   "hours below minimum",
			mutate: func(r *CreateTimesheetRequest) { r.Hours = 0.25 },
			reason: rules.ReasonHoursOutOfRange,
		},
		{
			name:   "hours above maximum",
			mutate: func(r *CreateTimesheetRequest) { r.Hours = 41 },
			reason: rules.ReasonHoursOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := f.service.Create(context.Background(), 20, req)
			var verr *rules.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestTimesheetService_Create_DuplicateWeek(t *testing.T) {
	f := newTimesheetFixture()
	f.timesheets.existsActiveForWeekFunc = func(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (bool, error) {
		assert.Equal(t, int64(3), tutorID)
		assert.Equal(t, int64(1), courseID)
		assert.True(t, weekStart.Equal(testWeekMonday))
		return true, nil
	}

	_, err := f.service.Create(context.Background(), 20, validCreateRequest())
	var verr *rules.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, rules.ReasonDuplicateTimesheet, verr.Reason)
}

func TestTimesheetService_Create_DuplicateWeekRace(t *testing.T) {
	f := newTimesheetFixture()

	// The advisory existence check sees nothing, but a racing create has taken
	// the slot by the time the insert runs.
	f.timesheets.createFunc = func(ctx context.Context, ts *entity.Timesheet) error {
		return port.ErrDuplicateWeek
	}

	_, err := f.service.Create(context.Background(), 20, validCreateRequest())
	var verr *rules.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, rules.ReasonDuplicateTimesheet, verr.Reason)
}

func TestTimesheetService_Create_UnknownCourse(t *testing.T) {
	f := newTimesheetFixture()

	req := validCreateRequest()
	req.CourseID = 42

	_, err := f.service.Create(context.Background(), 20, req)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestTimesheetService_Update(t *testing.T) {
	f := newTimesheetFixture()

	stored := &entity.Timesheet{
		ID: 7, TutorID: 3, CourseID: 1, Hours: 10,
		Status: workflow.StatusModificationRequested, Version: 2,
	}
	f.timesheets.getByIDFunc = func(ctx context.Context, id int64) (*entity.Timesheet, error) {
		if id == stored.ID {
			clone := *stored
			return &clone, nil
		}
		return nil, port.ErrNotFound
	}

	t.Run("tutor edits own editable timesheet", func(t *testing.T) {
		ts, err := f.service.Update(context.Background(), 3, 7, UpdateTimesheetRequest{
			Hours: 8.5, Description: "Reduced marking load",
		})
		require.NoError(t, err)
		assert.Equal(t, 8.5, ts.Hours)
		assert.Equal(t, timesheetTestNow, ts.UpdatedAt)
	})

	t.Run("other tutor forbidden", func(t *testing.T) {
		_, err := f.service.Update(context.Background(), 4, 7, UpdateTimesheetRequest{Hours: 8})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("hours validated on edit", func(t *testing.T) {
		_, err := f.service.Update(context.Background(), 3, 7, UpdateTimesheetRequest{Hours: 0})
		var verr *rules.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, rules.ReasonHoursOutOfRange, verr.Reason)
	})

	t.Run("locked once in the approval pipeline", func(t *testing.T) {
		stored.Status = workflow.StatusPendingTutorConfirmation
		defer func() { stored.Status = workflow.StatusModificationRequested }()

		_, err := f.service.Update(context.Background(), 3, 7, UpdateTimesheetRequest{Hours: 8})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown timesheet", func(t *testing.T) {
		_, err := f.service.Update(context.Background(), 3, 404, UpdateTimesheetRequest{Hours: 8})
		assert.ErrorIs(t, err, ErrTimesheetNotFound)
	})
}

func TestTimesheetService_Get_Visibility(t *testing.T) {
	f := newTimesheetFixture()

	stored := &entity.Timesheet{ID: 7, TutorID: 3, CourseID: 1, Status: workflow.StatusDraft}
	f.timesheets.getByIDFunc = func(ctx context.Context, id int64) (*entity.Timesheet, error) {
		if id == stored.ID {
			return stored, nil
		}
		return nil, port.ErrNotFound
	}

	for actorID, wantErr := range map[int64]error{
		3:  nil,          // owning tutor
		20: nil,          // course lecturer
		99: nil,          // admin
		4:  ErrForbidden, // unrelated tutor
		21: ErrForbidden, // lecturer on another course
	} {
		_, err := f.service.Get(context.Background(), actorID, 7)
		if wantErr == nil {
			assert.NoError(t, err, "actor %d", actorID)
		} else {
			assert.ErrorIs(t, err, wantErr, "actor %d", actorID)
		}
	}
}

func TestTimesheetService_List_ScopesByRole(t *testing.T) {
	f := newTimesheetFixture()

	var lastFilter port.TimesheetFilter
	f.timesheets.listFunc = func(ctx context.Context, filter port.TimesheetFilter) ([]*entity.Timesheet, error) {
		lastFilter = filter
		return []*entity.Timesheet{}, nil
	}

	// Tutors are narrowed to themselves even when asking for someone else.
	otherTutor := int64(4)
	_, err := f.service.List(context.Background(), 3, port.TimesheetFilter{TutorID: &otherTutor})
	require.NoError(t, err)
	require.NotNil(t, lastFilter.TutorID)
	assert.Equal(t, int64(3), *lastFilter.TutorID)

	// Lecturers may filter by a course they teach.
	courseID := int64(1)
	_, err = f.service.List(context.Background(), 20, port.TimesheetFilter{CourseID: &courseID})
	assert.NoError(t, err)

	// But not by one they do not.
	otherCourse := int64(2)
	_, err = f.service.List(context.Background(), 20, port.TimesheetFilter{CourseID: &otherCourse})
	assert.ErrorIs(t, err, ErrForbidden)
}
