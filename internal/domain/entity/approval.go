package entity

import (
	"time"

	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// ApprovalRecord is one immutable entry in a timesheet's audit trail. A record
// is appended once per accepted transition and never updated or deleted.
type ApprovalRecord struct {
	ID             int64           `json:"id"`
	TimesheetID    int64           `json:"timesheet_id"`
	Action         workflow.Action `json:"action"`
	PreviousStatus workflow.Status `json:"previous_status"`
	NewStatus      workflow.Status `json:"new_status"`
	ApproverID     int64           `json:"approver_id"`
	ApproverName   string          `json:"approver_name"`
	ApproverRole   workflow.Role   `json:"approver_role"`
	Comment        string          `json:"comment,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}
