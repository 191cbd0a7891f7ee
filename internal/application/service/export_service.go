package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

const exportSheet = "Confirmed Timesheets"

// ExportService produces the payroll export: an XLSX of every
// FINAL_CONFIRMED timesheet. Export is read-only with respect to the
// workflow and restricted to administrators.
type ExportService interface {
	ExportFinalConfirmed(ctx context.Context, actorID int64) (*excelize.File, error)
}

type exportServiceImpl struct {
	timesheetRepo port.TimesheetRepository
	userRepo      port.UserRepository
	courseRepo    port.CourseRepository
	logger        Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	timesheetRepo port.TimesheetRepository,
	userRepo port.UserRepository,
	courseRepo port.CourseRepository,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		timesheetRepo: timesheetRepo,
		userRepo:      userRepo,
		courseRepo:    courseRepo,
		logger:        logger,
	}
}

// ExportFinalConfirmed builds the payroll workbook
func (s *exportServiceImpl) ExportFinalConfirmed(ctx context.Context, actorID int64) (*excelize.File, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve actor: %w", err)
	}
	if actor.Role != workflow.RoleAdmin {
		return nil, fmt.Errorf("%w: payroll export is admin only", ErrForbidden)
	}

	status := workflow.StatusFinalConfirmed
	sheets, err := s.timesheetRepo.List(ctx, port.TimesheetFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("list confirmed timesheets: %w", err)
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", exportSheet)

	headers := []string{"Timesheet ID", "Tutor", "Course", "Week Starting", "Hours", "Description"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, ts := range sheets {
		tutorName := fmt.Sprintf("user %d", ts.TutorID)
		if tutor, err := s.userRepo.GetByID(ctx, ts.TutorID); err == nil {
			tutorName = tutor.Name
		}
		courseCode := fmt.Sprintf("course %d", ts.CourseID)
		if course, err := s.courseRepo.GetByID(ctx, ts.CourseID); err == nil {
			courseCode = course.Code
		}

		values := []interface{}{
			ts.ID,
			tutorName,
			courseCode,
			ts.WeekStartDate.Format("2006-01-02"),
			ts.Hours,
			ts.Description,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}

	s.logger.Info("Payroll export generated", "rows", len(sheets), "actor_id", actorID)
	return f, nil
}
