package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/policy"
	"github.com/usyd-catams/catams/internal/domain/rules"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ApplyActionRequest carries one approval action request. The actor is passed
// separately: identity resolution happens once at the HTTP boundary and the
// orchestrator never reads ambient auth state.
type ApplyActionRequest struct {
	TimesheetID int64
	Action      workflow.Action
	Comment     string
}

// ApprovalResult is the outcome of an accepted transition
type ApprovalResult struct {
	TimesheetID  int64           `json:"timesheet_id"`
	Action       workflow.Action `json:"action"`
	NewStatus    workflow.Status `json:"new_status"`
	ApproverID   int64           `json:"approver_id"`
	ApproverName string          `json:"approver_name"`
	Comment      string          `json:"comment,omitempty"`
	Timestamp    string          `json:"timestamp"`
	NextSteps    []string        `json:"next_steps"`
}

// ApprovalService orchestrates the timesheet approval workflow: permission
// check, business-rule validation, transition resolution, then an atomic
// status update plus audit append.
type ApprovalService interface {
	ApplyAction(ctx context.Context, actorID int64, req ApplyActionRequest) (*ApprovalResult, error)
	History(ctx context.Context, actorID, timesheetID int64) ([]*entity.ApprovalRecord, error)
	PendingForActor(ctx context.Context, actorID int64) ([]*entity.Timesheet, error)
}

type approvalServiceImpl struct {
	timesheetRepo port.TimesheetRepository
	approvalRepo  port.ApprovalRepository
	userRepo      port.UserRepository
	txManager     port.TransactionManager
	machine       *workflow.Machine
	permissions   *policy.Evaluator
	validator     *rules.Validator
	clock         rules.Clock
	logger        Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	timesheetRepo port.TimesheetRepository,
	approvalRepo port.ApprovalRepository,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	machine *workflow.Machine,
	permissions *policy.Evaluator,
	validator *rules.Validator,
	clock rules.Clock,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		timesheetRepo: timesheetRepo,
		approvalRepo:  approvalRepo,
		userRepo:      userRepo,
		txManager:     txManager,
		machine:       machine,
		permissions:   permissions,
		validator:     validator,
		clock:         clock,
		logger:        logger,
	}
}

// ApplyAction validates and applies one approval action.
//
// Steps 1-5 (load, resolve actor, permission, validation, transition lookup)
// have no side effects; only the final transaction mutates state. If the
// optimistic version check loses a race the timesheet is re-read once and the
// request re-evaluated against the new status, which normally fails with an
// invalid-transition error because the state has already moved.
func (s *approvalServiceImpl) ApplyAction(ctx context.Context, actorID int64, req ApplyActionRequest) (*ApprovalResult, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve actor: %w", err)
	}

	result, err := s.tryApply(ctx, actor, req)
	if errors.Is(err, port.ErrVersionConflict) {
		s.logger.Info("Approval action lost a concurrent update, re-evaluating",
			"timesheet_id", req.TimesheetID, "action", req.Action.String())
		result, err = s.tryApply(ctx, actor, req)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval action applied",
		"timesheet_id", req.TimesheetID,
		"action", req.Action.String(),
		"new_status", result.NewStatus.String(),
		"approver_id", actorID)
	return result, nil
}

func (s *approvalServiceImpl) tryApply(ctx context.Context, actor *entity.User, req ApplyActionRequest) (*ApprovalResult, error) {
	ts, err := s.timesheetRepo.GetByID(ctx, req.TimesheetID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrTimesheetNotFound
		}
		return nil, fmt.Errorf("load timesheet: %w", err)
	}

	if !s.permissions.CanPerform(ctx, actor, req.Action, ts) {
		return nil, fmt.Errorf("%w: %s may not %s timesheet %d",
			ErrForbidden, actor.Role, req.Action, ts.ID)
	}

	if err := s.validator.ValidateAction(req.Action, req.Comment); err != nil {
		return nil, err
	}

	nextStatus, err := s.machine.NextStatus(ts.Status, req.Action)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &entity.ApprovalRecord{
		TimesheetID:    ts.ID,
		Action:         req.Action,
		PreviousStatus: ts.Status,
		NewStatus:      nextStatus,
		ApproverID:     actor.ID,
		ApproverName:   actor.Name,
		ApproverRole:   actor.Role,
		Comment:        req.Comment,
		Timestamp:      now,
	}

	// Status write and audit append commit together or not at all. The
	// version check serializes racing writers on the same timesheet row.
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.timesheetRepo.UpdateStatus(txCtx, ts.ID, nextStatus, ts.Version, now); err != nil {
			return err
		}
		if err := s.approvalRepo.Create(txCtx, record); err != nil {
			return fmt.Errorf("append approval record: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, port.ErrVersionConflict) {
			s.logger.Error("Failed to apply approval action",
				"error", err, "timesheet_id", ts.ID, "action", req.Action.String())
		}
		return nil, err
	}

	return &ApprovalResult{
		TimesheetID:  ts.ID,
		Action:       req.Action,
		NewStatus:    nextStatus,
		ApproverID:   actor.ID,
		ApproverName: actor.Name,
		Comment:      req.Comment,
		Timestamp:    now.Format("2006-01-02T15:04:05Z07:00"),
		NextSteps:    nextStepsForStatus(nextStatus),
	}, nil
}

// History returns the timesheet's audit trail in chronological order, gated
// by the same visibility rules as the timesheet itself.
func (s *approvalServiceImpl) History(ctx context.Context, actorID, timesheetID int64) ([]*entity.ApprovalRecord, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve actor: %w", err)
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

	records, err := s.approvalRepo.GetByTimesheetID(ctx, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("load approval history: %w", err)
	}
	return records, nil
}

// PendingForActor returns the timesheets currently awaiting the actor's
// action, determined by role: tutors see their own pending confirmations,
// lecturers see tutor-confirmed sheets on their courses, admins see the HR
// queue.
func (s *approvalServiceImpl) PendingForActor(ctx context.Context, actorID int64) ([]*entity.Timesheet, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve actor: %w", err)
	}

	switch actor.Role {
	case workflow.RoleTutor:
		status := workflow.StatusPendingTutorConfirmation
		return s.timesheetRepo.List(ctx, port.TimesheetFilter{TutorID: &actor.ID, Status: &status})
	case workflow.RoleLecturer:
		return s.timesheetRepo.ListPendingForLecturer(ctx, actor.ID)
	case workflow.RoleAdmin:
		status := workflow.StatusLecturerConfirmed
		return s.timesheetRepo.List(ctx, port.TimesheetFilter{Status: &status})
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
}

// nextStepsForStatus returns the workflow guidance shown to callers after a
// successful transition
func nextStepsForStatus(status workflow.Status) []string {
	switch status {
	case workflow.StatusPendingTutorConfirmation:
		return []string{
			"Timesheet is awaiting tutor confirmation",
			"The tutor should review the recorded hours and confirm",
		}
	case workflow.StatusTutorConfirmed:
		return []string{
			"Timesheet has been confirmed by the tutor",
			"The course lecturer should now review and confirm",
		}
	case workflow.StatusLecturerConfirmed:
		return []string{
			"Timesheet has been confirmed by the lecturer",
			"Awaiting final HR confirmation",
		}
	case workflow.StatusFinalConfirmed:
		return []string{
			"Timesheet has been fully approved",
			"Ready for payroll processing",
			"No further approvals required",
		}
	case workflow.StatusRejected:
		return []string{
			"Timesheet has been rejected",
			"Review the rejection reason and make the necessary corrections",
			"The timesheet can be edited and resubmitted",
		}
	case workflow.StatusModificationRequested:
		return []string{
			"Modifications have been requested",
			"Review the feedback and update the timesheet",
			"Resubmit after making the requested changes",
		}
	default:
		return []string{"Status updated"}
	}
}
