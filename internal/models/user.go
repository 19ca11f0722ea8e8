package models

// Role is the kind of actor behind an account.
type Role string

// Role constants.
const (
	RoleCandidate Role = "candidate"
	RoleCompany   Role = "company"
	RoleAdmin     Role = "admin"
)

// User is the authenticated account returned by the auth endpoints.
type User struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}
