package workflow

// Role identifies the authority level of an actor in the approval workflow
type Role string

const (
	RoleTutor    Role = "TUTOR"
	RoleLecturer Role = "LECTURER"
	RoleAdmin    Role = "ADMIN"
)

var validRoles = map[Role]bool{
	RoleTutor:    true,
	RoleLecturer: true,
	RoleAdmin:    true,
}

// IsValid returns true if the role is a known role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
