package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when an action is not legal from the
	// timesheet's current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned when a status is not a known workflow status
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidAction is returned when an action is not a known workflow action
	ErrInvalidAction = errors.New("invalid action")
)
