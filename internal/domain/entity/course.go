package entity

import "time"

// Course is the unit a timesheet bills against. The assigned lecturer is the
// course owner for permission purposes.
type Course struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	LecturerID int64     `json:"lecturer_id"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
