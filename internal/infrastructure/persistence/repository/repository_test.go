package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/workflow"
	"github.com/usyd-catams/catams/internal/infrastructure/persistence/sqlite"
)

type repoFixture struct {
	db         *sql.DB
	txManager  *sqlite.DB
	timesheets port.TimesheetRepository
	approvals  port.ApprovalRepository
	users      port.UserRepository
	courses    port.CourseRepository
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "migrations", "001_initial_schema.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	seed := `
		INSERT INTO users (id, email, name, hashed_password, role, active) VALUES
			(3,  'tina@uni.edu', 'Tina Tutor',    'x', 'TUTOR',    TRUE),
			(20, 'len@uni.edu',  'Len Lecturer',  'x', 'LECTURER', TRUE),
			(21, 'lois@uni.edu', 'Lois Lecturer', 'x', 'LECTURER', TRUE),
			(99, 'ada@uni.edu',  'Ada Admin',     'x', 'ADMIN',    TRUE);
		INSERT INTO courses (id, code, name, lecturer_id, active) VALUES
			(1, 'COMP1511', 'Programming Fundamentals', 20, TRUE),
			(2, 'COMP2017', 'Systems Programming',      21, TRUE);
	`
	_, err = db.Exec(seed)
	require.NoError(t, err)

	logger := zap.NewNop()
	return &repoFixture{
		db:         db,
		txManager:  sqlite.NewDB(db, logger),
		timesheets: NewTimesheetRepository(db, logger),
		approvals:  NewApprovalRepository(db, logger),
		users:      NewUserRepository(db, logger),
		courses:    NewCourseRepository(db, logger),
	}
}

func newTestTimesheet(weekStart time.Time) *entity.Timesheet {
	now := time.Date(2025, 10, 30, 12, 0, 0, 0, time.UTC)
	return &entity.Timesheet{
		TutorID:       3,
		CourseID:      1,
		WeekStartDate: weekStart,
		Hours:         10,
		Description:   "Tutorials and marking",
		Status:        workflow.StatusDraft,
		CreatedBy:     3,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

var testWeek = time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC)

func TestUserRepository(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	user, err := f.users.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Tina Tutor", user.Name)
	assert.Equal(t, workflow.RoleTutor, user.Role)
	assert.True(t, user.Active)

	user, err = f.users.GetByEmail(ctx, "ada@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleAdmin, user.Role)

	_, err = f.users.GetByID(ctx, 404)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestCourseRepository(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	course, err := f.courses.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "COMP1511", course.Code)
	assert.Equal(t, int64(20), course.LecturerID)

	_, err = f.courses.GetByID(ctx, 404)
	assert.ErrorIs(t, err, port.ErrNotFound)

	teaches, err := f.courses.LecturerTeachesCourse(ctx, 20, 1)
	require.NoError(t, err)
	assert.True(t, teaches)

	teaches, err = f.courses.LecturerTeachesCourse(ctx, 20, 2)
	require.NoError(t, err)
	assert.False(t, teaches)
}

func TestTimesheetRepository_CreateAndGet(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	ts := newTestTimesheet(testWeek)
	require.NoError(t, f.timesheets.Create(ctx, ts))
	assert.NotZero(t, ts.ID)
	assert.Equal(t, int64(1), ts.Version)

	loaded, err := f.timesheets.GetByID(ctx, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, ts.TutorID, loaded.TutorID)
	assert.True(t, loaded.WeekStartDate.Equal(testWeek))
	assert.Equal(t, workflow.StatusDraft, loaded.Status)
	assert.Equal(t, int64(1), loaded.Version)

	_, err = f.timesheets.GetByID(ctx, 404)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestTimesheetRepository_UpdateStatusVersioning(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	ts := newTestTimesheet(testWeek)
	require.NoError(t, f.timesheets.Create(ctx, ts))

	at := time.Date(2025, 10, 30, 13, 0, 0, 0, time.UTC)
	require.NoError(t, f.timesheets.UpdateStatus(ctx, ts.ID, workflow.StatusPendingTutorConfirmation, 1, at))

	loaded, err := f.timesheets.GetByID(ctx, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingTutorConfirmation, loaded.Status)
	assert.Equal(t, int64(2), loaded.Version)

	// A stale writer loses.
	err = f.timesheets.UpdateStatus(ctx, ts.ID, workflow.StatusTutorConfirmed, 1, at)
	assert.ErrorIs(t, err, port.ErrVersionConflict)

	// A missing row is not a conflict.
	err = f.timesheets.UpdateStatus(ctx, 404, workflow.StatusTutorConfirmed, 1, at)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestTimesheetRepository_DuplicateWeekRefusedBySchema(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	first := newTestTimesheet(testWeek)
	require.NoError(t, f.timesheets.Create(ctx, first))

	// A second row for the same (tutor, course, week) is refused below the
	// service guard, so two racing creates cannot both land.
	err := f.timesheets.Create(ctx, newTestTimesheet(testWeek))
	assert.ErrorIs(t, err, port.ErrDuplicateWeek)

	// A different week on the same course is unaffected.
	require.NoError(t, f.timesheets.Create(ctx, newTestTimesheet(testWeek.AddDate(0, 0, 7))))

	// Once the first row is rejected the week opens up again.
	require.NoError(t, f.timesheets.UpdateStatus(ctx, first.ID, workflow.StatusRejected, 1, time.Now()))
	require.NoError(t, f.timesheets.Create(ctx, newTestTimesheet(testWeek)))
}

func TestTimesheetRepository_ExistsActiveForWeek(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	ts := newTestTimesheet(testWeek)
	require.NoError(t, f.timesheets.Create(ctx, ts))

	exists, err := f.timesheets.ExistsActiveForWeek(ctx, 3, 1, testWeek)
	require.NoError(t, err)
	assert.True(t, exists)

	// Different week, different course and different tutor are all free.
	exists, err = f.timesheets.ExistsActiveForWeek(ctx, 3, 1, testWeek.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = f.timesheets.ExistsActiveForWeek(ctx, 3, 2, testWeek)
	require.NoError(t, err)
	assert.False(t, exists)

	// A rejected timesheet does not block resubmission via a fresh row.
	require.NoError(t, f.timesheets.UpdateStatus(ctx, ts.ID, workflow.StatusRejected, 1, time.Now()))
	exists, err = f.timesheets.ExistsActiveForWeek(ctx, 3, 1, testWeek)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTimesheetRepository_ListAndPendingQueue(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	onLen := newTestTimesheet(testWeek)
	require.NoError(t, f.timesheets.Create(ctx, onLen))
	require.NoError(t, f.timesheets.UpdateStatus(ctx, onLen.ID, workflow.StatusTutorConfirmed, 1, time.Now()))

	onLois := newTestTimesheet(testWeek.AddDate(0, 0, 7))
	onLois.CourseID = 2
	require.NoError(t, f.timesheets.Create(ctx, onLois))

	status := workflow.StatusTutorConfirmed
	listed, err := f.timesheets.List(ctx, port.TimesheetFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, onLen.ID, listed[0].ID)

	courseID := int64(2)
	listed, err = f.timesheets.List(ctx, port.TimesheetFilter{CourseID: &courseID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, onLois.ID, listed[0].ID)

	// Only Len has a tutor-confirmed sheet on his course.
	pending, err := f.timesheets.ListPendingForLecturer(ctx, 20)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, onLen.ID, pending[0].ID)

	pending, err = f.timesheets.ListPendingForLecturer(ctx, 21)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApprovalRepository_AppendAndReadBack(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	ts := newTestTimesheet(testWeek)
	require.NoError(t, f.timesheets.Create(ctx, ts))

	base := time.Date(2025, 10, 30, 14, 0, 0, 0, time.UTC)
	first := &entity.ApprovalRecord{
		TimesheetID:    ts.ID,
		Action:         workflow.ActionSubmitForApproval,
		PreviousStatus: workflow.StatusDraft,
		NewStatus:      workflow.StatusPendingTutorConfirmation,
		ApproverID:     3,
		ApproverName:   "Tina Tutor",
		ApproverRole:   workflow.RoleTutor,
		Timestamp:      base,
	}
	second := &entity.ApprovalRecord{
		TimesheetID:    ts.ID,
		Action:         workflow.ActionTutorConfirm,
		PreviousStatus: workflow.StatusPendingTutorConfirmation,
		NewStatus:      workflow.StatusTutorConfirmed,
		ApproverID:     3,
		ApproverName:   "Tina Tutor",
		ApproverRole:   workflow.RoleTutor,
		Comment:        "Hours are correct",
		Timestamp:      base.Add(time.Minute),
	}
	require.NoError(t, f.approvals.Create(ctx, first))
	require.NoError(t, f.approvals.Create(ctx, second))

	records, err := f.approvals.GetByTimesheetID(ctx, ts.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, workflow.ActionSubmitForApproval, records[0].Action)
	assert.Equal(t, workflow.ActionTutorConfirm, records[1].Action)
	assert.Equal(t, "Hours are correct", records[1].Comment)
	assert.Equal(t, workflow.RoleTutor, records[1].ApproverRole)
}

func TestWithTransaction_RollsBackBothWrites(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	ts := newTestTimesheet(testWeek)
	require.NoError(t, f.timesheets.Create(ctx, ts))

	boom := errors.New("boom")
	err := f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.timesheets.UpdateStatus(txCtx, ts.ID, workflow.StatusPendingTutorConfirmation, 1, time.Now()); err != nil {
			return err
		}
		if err := f.approvals.Create(txCtx, &entity.ApprovalRecord{
			TimesheetID:    ts.ID,
			Action:         workflow.ActionSubmitForApproval,
			PreviousStatus: workflow.StatusDraft,
			NewStatus:      workflow.StatusPendingTutorConfirmation,
			ApproverID:     3,
			ApproverName:   "Tina Tutor",
			ApproverRole:   workflow.RoleTutor,
			Timestamp:      time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Neither the status change nor the audit entry survived.
	loaded, err := f.timesheets.GetByID(ctx, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, loaded.Status)
	assert.Equal(t, int64(1), loaded.Version)

	records, err := f.approvals.GetByTimesheetID(ctx, ts.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}
