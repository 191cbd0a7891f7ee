package rules

import "fmt"

// Reason is a stable machine-readable code for a violated business rule
type Reason string

// Validation failure reasons surfaced to callers
const (
	ReasonDuplicateTimesheet Reason = "duplicate-timesheet"
	ReasonNonMondayDate      Reason = "non-monday-date"
	ReasonFutureDate         Reason = "future-date"
	ReasonMissingComment     Reason = "missing-comment"
	ReasonHoursOutOfRange    Reason = "hours-out-of-range"
)

// ValidationError reports a violated business rule. The Reason field is
// machine-readable; Message is for humans.
type ValidationError struct {
	Reason  Reason
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Message)
}

func newValidationError(reason Reason, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}
