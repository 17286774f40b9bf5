package model

type Role string

const (
	RolePatient      Role = "patient"
	RoleProfessional Role = "professional"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}
