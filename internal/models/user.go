package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent      UserRole = "STUDENT"
	RoleFaculty      UserRole = "FACULTY"
	RoleHOD          UserRole = "HOD"
	RoleDAC          UserRole = "DAC"
	RoleExamSection  UserRole = "EXAM_SECTION"
	RoleDeanAcademic UserRole = "DEAN_ACADEMIC"
	RoleAdmin        UserRole = "ADMIN"
)

// ApproverRoles are the roles allowed to act on approval-chain transitions,
// including the distinguished reject transition.
func ApproverRoles() []UserRole {
	return []UserRole{RoleFaculty, RoleHOD, RoleDAC, RoleExamSection, RoleDeanAcademic}
}

// IsApprover reports whether the role participates in the approval chain.
func (r UserRole) IsApprover() bool {
	for _, role := range ApproverRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
