package service

import "errors"

var (
	// ErrTimesheetNotFound is returned when the requested timesheet is absent
	ErrTimesheetNotFound = errors.New("timesheet not found")

	// ErrUserNotFound is returned when the acting user cannot be resolved
	ErrUserNotFound = errors.New("user not found")

	// ErrCourseNotFound is returned when the referenced course is absent
	ErrCourseNotFound = errors.New("course not found")

	// ErrForbidden is returned when the actor lacks permission for the request
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials is returned on a failed login attempt
	ErrInvalidCredentials = errors.New("invalid email or password")
)
