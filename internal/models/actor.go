package models

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	Role        Role   `json:"role"`
	DisplayName string `json:"displayName"`
}

// CanEdit reports whether the actor may create or change school records.
func (a Actor) CanEdit() bool {
	return a.Role == RoleAdmin || a.Role == RoleTeacher
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
