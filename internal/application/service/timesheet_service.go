package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/policy"
	"github.com/usyd-catams/catams/internal/domain/rules"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// CreateTimesheetRequest carries the fields for a new draft timesheet
type CreateTimesheetRequest struct {
	TutorID       int64
	CourseID      int64
	WeekStartDate time.Time
	Hours         float64
	Description   string
}

// UpdateTimesheetRequest carries direct field edits. Edits bypass the
// workflow and are only legal while the status is re-editable.
type UpdateTimesheetRequest struct {
	Hours       float64
	Description string
}

// TimesheetService manages timesheet creation, edits and reads. Creation is
// the entry point of the approval workflow: every timesheet starts in DRAFT
// and moves only through the approval orchestrator afterwards.
type TimesheetService interface {
	Create(ctx context.Context, actorID int64, req CreateTimesheetRequest) (*entity.Timesheet, error)
	Update(ctx context.Context, actorID, timesheetID int64, req UpdateTimesheetRequest) (*entity.Timesheet, error)
	Get(ctx context.Context, actorID, timesheetID int64) (*entity.Timesheet, error)
	List(ctx context.Context, actorID int64, filter port.TimesheetFilter) ([]*entity.Timesheet, error)
}

type timesheetServiceImpl struct {
	timesheetRepo port.TimesheetRepository
	userRepo      port.UserRepository
	courseRepo    port.CourseRepository
	permissions   *policy.Evaluator
	validator     *rules.Validator
	clock         rules.Clock
	logger        Logger
}

// NewTimesheetService creates a new TimesheetService
func NewTimesheetService(
	timesheetRepo port.TimesheetRepository,
	userRepo port.UserRepository,
	courseRepo port.CourseRepository,
	permissions *policy.Evaluator,
	validator *rules.Validator,
	clock rules.Clock,
	logger Logger,
) TimesheetService {
	return &timesheetServiceImpl{
		timesheetRepo: timesheetRepo,
		userRepo:      userRepo,
		courseRepo:    courseRepo,
		permissions:   permissions,
		validator:     validator,
		clock:         clock,
		logger:        logger,
	}
}

// Create creates a new timesheet in DRAFT for a tutor on a course
func (s *timesheetServiceImpl) Create(ctx context.Context, actorID int64, req CreateTimesheetRequest) (*entity.Timesheet, error) {
	actor, err := s.resolveUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tutor, err := s.resolveUser(ctx, req.TutorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.courseRepo.GetByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}

	if !s.permissions.CanCreateFor(ctx, actor, tutor, req.CourseID) {
		return nil, fmt.Errorf("%w: %s may not create a timesheet for tutor %d on course %d",
			ErrForbidden, actor.Role, req.TutorID, req.CourseID)
	}

	if err := s.validator.ValidateCreation(ctx, req.TutorID, req.CourseID, req.WeekStartDate, req.Hours); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ts := &entity.Timesheet{
		TutorID:       req.TutorID,
		CourseID:      req.CourseID,
		WeekStartDate: req.WeekStartDate,
		Hours:         req.Hours,
		Description:   req.Description,
		Status:        workflow.StatusDraft,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.timesheetRepo.Create(ctx, ts); err != nil {
		// A racing create can slip past ValidateCreation; the unique index
		// catches it and the caller sees the same duplicate reason either way.
		if errors.Is(err, port.ErrDuplicateWeek) {
			return nil, &rules.ValidationError{
				Reason: rules.ReasonDuplicateTimesheet,
				Message: fmt.Sprintf("timesheet already exists for tutor %d, course %d, week %s",
					req.TutorID, req.CourseID, req.WeekStartDate.Format("2006-01-02")),
			}
		}
		s.logger.Error("Failed to create timesheet", "error", err,
			"tutor_id", req.TutorID, "course_id", req.CourseID)
		return nil, fmt.Errorf("create timesheet: %w", err)
	}

	s.logger.Info("Timesheet created", "id", ts.ID,
		"tutor_id", ts.TutorID, "course_id", ts.CourseID,
		"week_start", ts.WeekStartDate.Format("2006-01-02"))
	return ts, nil
}

// Update applies direct hours/description edits to a re-editable timesheet
func (s *timesheetServiceImpl) Update(ctx context.Context, actorID, timesheetID int64, req UpdateTimesheetRequest) (*entity.Timesheet, error) {
	actor, err := s.resolveUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	ts, err := s.timesheetRepo.GetByID(ctx, timesheetID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrTimesheetNotFound
		}
		return nil, fmt.Errorf("load timesheet: %w", err)
	}

	if !s.permissions.CanEdit(ctx, actor, ts) {
		return nil, fmt.Errorf("%w: timesheet %d is not editable by %s in status %s",
			ErrForbidden, timesheetID, actor.Role, ts.Status)
	}

	if err := s.validator.ValidateHours(req.Hours); err != nil {
		return nil, err
	}

	ts.Hours = req.Hours
	ts.Description = req.Description
	ts.UpdatedAt = s.clock.Now()

	if err := s.timesheetRepo.Update(ctx, ts); err != nil {
		s.logger.Error("Failed to update timesheet", "error", err, "id", timesheetID)
		return nil, fmt.Errorf("update timesheet: %w", err)
	}

	s.logger.Info("Timesheet updated", "id", ts.ID, "hours", ts.Hours)
	return ts, nil
}

// Get returns one timesheet, subject to visibility rules
func (s *timesheetServiceImpl) Get(ctx context.Context, actorID, timesheetID int64) (*entity.Timesheet, error) {
	actor, err := s.resolveUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	ts, err := s.timesheetRepo.GetByID(ctx, timesheetID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrTimesheetNotFound
		}
		return nil, fmt.Errorf("load timesheet: %w", err)
	}

	if !s.permissions.CanView(ctx, actor, ts) {
		return nil, fmt.Errorf("%w: no visibility of timesheet %d", ErrForbidden, timesheetID)
	}
	return ts, nil
}

// List returns timesheets matching the filter. Tutors are always narrowed to
// their own timesheets regardless of the requested filter.
func (s *timesheetServiceImpl) List(ctx context.Context, actorID int64, filter port.TimesheetFilter) ([]*entity.Timesheet, error) {
	actor, err := s.resolveUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if actor.Role == workflow.RoleTutor {
		filter.TutorID = &actor.ID
	}

	if actor.Role == workflow.RoleLecturer && filter.CourseID != nil {
		teaches, err := s.courseRepo.LecturerTeachesCourse(ctx, actor.ID, *filter.CourseID)
		if err != nil || !teaches {
			return nil, fmt.Errorf("%w: course %d is not taught by lecturer %d",
				ErrForbidden, *filter.CourseID, actor.ID)
		}
	}

	return s.timesheetRepo.List(ctx, filter)
}

func (s *timesheetServiceImpl) resolveUser(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve user %d: %w", id, err)
	}
	return user, nil
}
