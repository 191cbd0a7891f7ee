package workflow

import "fmt"

// Action represents a caller-requested transition of a timesheet's status
type Action string

const (
	ActionSubmitForApproval   Action = "SUBMIT_FOR_APPROVAL"
	ActionTutorConfirm        Action = "TUTOR_CONFIRM"
	ActionLecturerConfirm     Action = "LECTURER_CONFIRM"
	ActionHRConfirm           Action = "HR_CONFIRM"
	ActionReject              Action = "REJECT"
	ActionRequestModification Action = "REQUEST_MODIFICATION"
)

var validActions = map[Action]bool{
	ActionSubmitForApproval:   true,
	ActionTutorConfirm:        true,
	ActionLecturerConfirm:     true,
	ActionHRConfirm:           true,
	ActionReject:              true,
	ActionRequestModification: true,
}

// RequiresComment returns true for actions that must carry a justification.
// REJECT and REQUEST_MODIFICATION always need a human-readable reason that
// becomes part of the audit record shown to the tutor.
func (a Action) RequiresComment() bool {
	return a == ActionReject || a == ActionRequestModification
}

// IsValid returns true if the action is a known workflow action
func (a Action) IsValid() bool {
	return validActions[a]
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// ParseAction converts a wire-format action name into an Action
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", fmt.Errorf("unknown approval action: %q", s)
	}
	return a, nil
}
