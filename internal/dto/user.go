package dto

import "github.com/avalia-edu/avalia-api/internal/models"

// UpdateUserRequest patches a user account. Role and validated changes are
// restricted to moderators at the service layer.
type UpdateUserRequest struct {
	CPF       *string          `json:"cpf,omitempty"`
	Email     *string          `json:"email,omitempty"`
	Password  *string          `json:"password,omitempty"`
	CourseID  *int64           `json:"course_id,omitempty"`
	Role      *models.UserRole `json:"role,omitempty"`
	Validated *bool            `json:"validated,omitempty"`
}
