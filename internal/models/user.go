package models

import "time"

// UserRole represents the available roles on the platform.
type UserRole string

const (
	RoleStudent     UserRole = "STUDENT"
	RoleProfessor   UserRole = "PROFESSOR"
	RoleInstitution UserRole = "INSTITUTION"
	RoleModerator   UserRole = "MODERATOR"
)

// Valid reports whether the role belongs to the closed set.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleInstitution, RoleModerator:
		return true
	}
	return false
}

// User represents a platform account stored in the users table.
type User struct {
	ID           int64     `db:"id" json:"id"`
	CPF          string    `db:"cpf" json:"cpf"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	Validated    bool      `db:"validated" json:"validated"`
	CourseID     *int64    `db:"course_id" json:"course_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsModerator reports whether the user holds the moderator role.
func (u *User) IsModerator() bool {
	return u != nil && u.Role == RoleModerator
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role   *UserRole
	Search string
	Skip   int
	Limit  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Skip       int `json:"skip"`
	Limit      int `json:"limit"`
	TotalCount int `json:"total_count"`
}
