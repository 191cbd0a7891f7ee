package service

import (
	"context"
	"time"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// Mock repositories, teacher-style: every method delegates to an optional
// func field so each test overrides only what it cares about.

type mockTimesheetRepo struct {
	createFunc                 func(ctx context.Context, ts *entity.Timesheet) error
	getByIDFunc                func(ctx context.Context, id int64) (*entity.Timesheet, error)
	updateFunc                 func(ctx context.Context, ts *entity.Timesheet) error
	updateStatusFunc           func(ctx context.Context, id int64, status workflow.Status, expectedVersion int64, at time.Time) error
	existsActiveForWeekFunc    func(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (bool, error)
	listFunc                   func(ctx context.Context, filter port.TimesheetFilter) ([]*entity.Timesheet, error)
	listPendingForLecturerFunc func(ctx context.Context, lecturerID int64) ([]*entity.Timesheet, error)
}

func (m *mockTimesheetRepo) Create(ctx context.Context, ts *entity.Timesheet) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, ts)
	}
	ts.ID = 1
	return nil
}

func (m *mockTimesheetRepo) GetByID(ctx context.Context, id int64) (*entity.Timesheet, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, port.ErrNotFound
}

func (m *mockTimesheetRepo) Update(ctx context.Context, ts *entity.Timesheet) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, ts)
	}
	return nil
}

func (m *mockTimesheetRepo) UpdateStatus(ctx context.Context, id int64, status workflow.Status, expectedVersion int64, at time.Time) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status, expectedVersion, at)
	}
	return nil
}

func (m *mockTimesheetRepo) ExistsActiveForWeek(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (bool, error) {
	if m.existsActiveForWeekFunc != nil {
		return m.existsActiveForWeekFunc(ctx, tutorID, courseID, weekStart)
	}
	return false, nil
}

func (m *mockTimesheetRepo) List(ctx context.Context, filter port.TimesheetFilter) ([]*entity.Timesheet, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.Timesheet{}, nil
}

func (m *mockTimesheetRepo) ListPendingForLecturer(ctx context.Context, lecturerID int64) ([]*entity.Timesheet, error) {
	if m.listPendingForLecturerFunc != nil {
		return m.listPendingForLecturerFunc(ctx, lecturerID)
	}
	return []*entity.Timesheet{}, nil
}

type mockApprovalRepo struct {
	createFunc           func(ctx context.Context, record *entity.ApprovalRecord) error
	getByTimesheetIDFunc func(ctx context.Context, timesheetID int64) ([]*entity.ApprovalRecord, error)
	records              []*entity.ApprovalRecord
}

func (m *mockApprovalRepo) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, record)
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockApprovalRepo) GetByTimesheetID(ctx context.Context, timesheetID int64) ([]*entity.ApprovalRecord, error) {
	if m.getByTimesheetIDFunc != nil {
		return m.getByTimesheetIDFunc(ctx, timesheetID)
	}
	return m.records, nil
}

type mockUserRepo struct {
	users map[int64]*entity.User
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, port.ErrNotFound
}

type mockCourseRepo struct {
	courses map[int64]*entity.Course
}

func (m *mockCourseRepo) GetByID(ctx context.Context, id int64) (*entity.Course, error) {
	if course, ok := m.courses[id]; ok {
		return course, nil
	}
	return nil, port.ErrNotFound
}

func (m *mockCourseRepo) LecturerTeachesCourse(ctx context.Context, lecturerID, courseID int64) (bool, error) {
	course, ok := m.courses[courseID]
	if !ok {
		return false, nil
	}
	return course.LecturerID == lecturerID, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
