package entity

import (
	"time"

	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// User is an actor in the approval workflow: a tutor, a lecturer, or an
// administrator. Identity and role are resolved at the authentication
// boundary; the workflow core only ever receives a loaded User value.
type User struct {
	ID             int64         `json:"id"`
	Email          string        `json:"email"`
	Name           string        `json:"name"`
	HashedPassword string        `json:"-"`
	Role           workflow.Role `json:"role"`
	Active         bool          `json:"active"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsAdmin returns true for administrator users
func (u *User) IsAdmin() bool {
	return u.Role == workflow.RoleAdmin
}

// IsLecturer returns true for lecturer users
func (u *User) IsLecturer() bool {
	return u.Role == workflow.RoleLecturer
}

// IsTutor returns true for tutor users
func (u *User) IsTutor() bool {
	return u.Role == workflow.RoleTutor
}
