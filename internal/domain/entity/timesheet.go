package entity

import (
	"time"

	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// Timesheet represents one week of casual-academic work for one tutor on one
// course. At most one timesheet may exist per (tutor, course, week start)
// outside REJECTED; duplicates are refused at creation time.
//
// After creation the status field changes only through the approval workflow.
// Version carries the optimistic lock used to serialize concurrent status
// updates against the same row.
type Timesheet struct {
	ID            int64           `json:"id"`
	TutorID       int64           `json:"tutor_id"`
	CourseID      int64           `json:"course_id"`
	WeekStartDate time.Time       `json:"week_start_date"`
	Hours         float64         `json:"hours"`
	Description   string          `json:"description"`
	Status        workflow.Status `json:"status"`
	Version       int64           `json:"version"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsEditable returns true while hours and description may still be changed
// directly, outside the approval workflow
func (t *Timesheet) IsEditable() bool {
	return t.Status.IsEditable()
}

// IsOwnedBy returns true if the given user is the tutor the timesheet bills for
func (t *Timesheet) IsOwnedBy(userID int64) bool {
	return t.TutorID == userID
}
