package workflow

// Status represents a timesheet's position in the approval lifecycle
type Status string

const (
	StatusDraft                    Status = "DRAFT"
	StatusPendingTutorConfirmation Status = "PENDING_TUTOR_CONFIRMATION"
	StatusTutorConfirmed           Status = "TUTOR_CONFIRMED"
	StatusLecturerConfirmed        Status = "LECTURER_CONFIRMED"
	StatusFinalConfirmed           Status = "FINAL_CONFIRMED"
	StatusRejected                 Status = "REJECTED"
	StatusModificationRequested    Status = "MODIFICATION_REQUESTED"
)

var validStatuses = map[Status]bool{
	StatusDraft:                    true,
	StatusPendingTutorConfirmation: true,
	StatusTutorConfirmed:           true,
	StatusLecturerConfirmed:        true,
	StatusFinalConfirmed:           true,
	StatusRejected:                 true,
	StatusModificationRequested:    true,
}

// editableStatuses are the statuses in which hours and description may still
// be changed directly, outside the approval workflow.
var editableStatuses = map[Status]bool{
	StatusDraft:                 true,
	StatusModificationRequested: true,
	StatusRejected:              true,
}

// IsTerminal returns true if the status allows no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusFinalConfirmed
}

// IsEditable returns true if timesheet fields may be edited in this status
func (s Status) IsEditable() bool {
	return editableStatuses[s]
}

// IsValid returns true if the status is a known workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}
