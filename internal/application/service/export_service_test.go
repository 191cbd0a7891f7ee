package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

func TestExportService_ExportFinalConfirmed(t *testing.T) {
	users := &mockUserRepo{users: map[int64]*entity.User{
		3:  {ID: 3, Name: "Tina Tutor", Role: workflow.RoleTutor, Active: true},
		20: {ID: 20, Name: "Len Lecturer", Role: workflow.RoleLecturer, Active: true},
		99: {ID: 99, Name: "Ada Admin", Role: workflow.RoleAdmin, Active: true},
	}}
	courses := &mockCourseRepo{courses: map[int64]*entity.Course{
		1: {ID: 1, Code: "COMP1511", LecturerID: 20, Active: true},
	}}
	timesheets := &mockTimesheetRepo{}
	timesheets.listFunc = func(ctx context.Context, filter port.TimesheetFilter) ([]*entity.Timesheet, error) {
		require.NotNil(t, filter.Status)
		assert.Equal(t, workflow.StatusFinalConfirmed, *filter.Status)
		return []*entity.Timesheet{
			{ID: 7, TutorID: 3, CourseID: 1,
				WeekStartDate: time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC),
				Hours:         10, Description: "Tutorials and marking",
				Status: workflow.StatusFinalConfirmed},
		}, nil
	}

	svc := NewExportService(timesheets, users, courses, &mockLogger{})

	t.Run("admin export", func(t *testing.T) {
		f, err := svc.ExportFinalConfirmed(context.Background(), 99)
		require.NoError(t, err)
		defer f.Close()

		header, err := f.GetCellValue("Confirmed Timesheets", "A1")
		require.NoError(t, err)
		assert.Equal(t, "Timesheet ID", header)

		tutor, err := f.GetCellValue("Confirmed Timesheets", "B2")
		require.NoError(t, err)
		assert.Equal(t, "Tina Tutor", tutor)

		course, err := f.GetCellValue("Confirmed Timesheets", "C2")
		require.NoError(t, err)
		assert.Equal(t, "COMP1511", course)

		week, err := f.GetCellValue("Confirmed Timesheets", "D2")
		require.NoError(t, err)
		assert.Equal(t, "2025-10-27", week)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		_, err := svc.ExportFinalConfirmed(context.Background(), 20)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
