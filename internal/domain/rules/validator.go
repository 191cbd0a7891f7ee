package rules

import (
	"context"
	"strings"
	"time"

	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// DuplicateChecker reports whether a timesheet already exists for the given
// (tutor, course, week start) triple in any status that blocks re-creation.
// REJECTED timesheets do not block: a rejected week may be re-created.
type DuplicateChecker interface {
	ExistsActiveForWeek(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (bool, error)
}

// HoursBounds limits the delivery hours a single weekly timesheet may claim
type HoursBounds struct {
	Min float64
	Max float64
}

// DefaultHoursBounds matches the standard casual sessional contract limits
func DefaultHoursBounds() HoursBounds {
	return HoursBounds{Min: 0.5, Max: 40}
}

// Validator enforces the business rules that gate workflow actions but are
// independent of the transition table. It is consulted after the permission
// check and before the transition lookup, so a permitted-but-invalid request
// fails with a precise rule violation rather than a generic transition error.
type Validator struct {
	timesheets DuplicateChecker
	clock      Clock
	bounds     HoursBounds
}

// NewValidator creates a validator
func NewValidator(timesheets DuplicateChecker, clock Clock, bounds HoursBounds) *Validator {
	return &Validator{
		timesheets: timesheets,
		clock:      clock,
		bounds:     bounds,
	}
}

// ValidateCreation gates timesheet creation, which seeds the state machine.
// Week start must be a Monday, must not be in the future, the hours must be
// inside the configured bounds, and no other timesheet may exist for the same
// (tutor, course, week) outside REJECTED.
func (v *Validator) ValidateCreation(ctx context.Context, tutorID, courseID int64, weekStart time.Time, hours float64) error {
	if weekStart.Weekday() != time.Monday {
		return newValidationError(ReasonNonMondayDate,
			"week start date must be a Monday, got %s (%s)",
			weekStart.Format("2006-01-02"), weekStart.Weekday())
	}

	if weekStart.After(v.clock.Now()) {
		return newValidationError(ReasonFutureDate,
			"week start date %s is in the future", weekStart.Format("2006-01-02"))
	}

	if err := v.ValidateHours(hours); err != nil {
		return err
	}

	exists, err := v.timesheets.ExistsActiveForWeek(ctx, tutorID, courseID, weekStart)
	if err != nil {
		return err
	}
	if exists {
		return newValidationError(ReasonDuplicateTimesheet,
			"timesheet already exists for tutor %d, course %d, week %s",
			tutorID, courseID, weekStart.Format("2006-01-02"))
	}

	return nil
}

// ValidateAction gates approval actions. REJECT and REQUEST_MODIFICATION must
// carry a non-blank justification; every other action treats the comment as
// optional.
func (v *Validator) ValidateAction(action workflow.Action, comment string) error {
	if action.RequiresComment() && strings.TrimSpace(comment) == "" {
		return newValidationError(ReasonMissingComment,
			"%s requires a comment explaining the decision", action)
	}
	return nil
}

// ValidateHours checks the delivery hours against the configured bounds
func (v *Validator) ValidateHours(hours float64) error {
	if hours < v.bounds.Min || hours > v.bounds.Max {
		return newValidationError(ReasonHoursOutOfRange,
			"hours must be between %.1f and %.1f, got %.1f",
			v.bounds.Min, v.bounds.Max, hours)
	}
	return nil
}
