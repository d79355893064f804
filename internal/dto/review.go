package dto

import "github.com/avalia-edu/avalia-api/internal/models"

// CreateReviewRequest carries a new review submission. Exactly one of the
// four target identifiers must be set and it must match TargetType.
type CreateReviewRequest struct {
	TargetType    models.TargetType `json:"target_type" validate:"required"`
	InstitutionID *int64            `json:"institution_id,omitempty"`
	CourseID      *int64            `json:"course_id,omitempty"`
	ProfessorID   *int64            `json:"professor_id,omitempty"`
	SubjectID     *int64            `json:"subject_id,omitempty"`
	Rating1       int               `json:"rating_1" validate:"required"`
	Rating2       int               `json:"rating_2" validate:"required"`
	Rating3       int               `json:"rating_3" validate:"required"`
	Rating4       int               `json:"rating_4" validate:"required"`
	Rating5       int               `json:"rating_5" validate:"required"`
	Text          string            `json:"text" validate:"required"`
}

// TargetID returns the identifier set for the given column, nil when absent.
func (r CreateReviewRequest) TargetID(column string) *int64 {
	switch column {
	case "institution_id":
		return r.InstitutionID
	case "course_id":
		return r.CourseID
	case "professor_id":
		return r.ProfessorID
	case "subject_id":
		return r.SubjectID
	}
	return nil
}

// UpdateReviewRequest patches review content or, for moderators, the
// approval flag. Absent fields are left untouched.
type UpdateReviewRequest struct {
	Rating1  *int    `json:"rating_1,omitempty"`
	Rating2  *int    `json:"rating_2,omitempty"`
	Rating3  *int    `json:"rating_3,omitempty"`
	Rating4  *int    `json:"rating_4,omitempty"`
	Rating5  *int    `json:"rating_5,omitempty"`
	Text     *string `json:"text,omitempty"`
	Approved *bool   `json:"approved,omitempty"`
}

// HasContentEdit reports whether any rating or the text is being changed.
func (r UpdateReviewRequest) HasContentEdit() bool {
	return r.Rating1 != nil || r.Rating2 != nil || r.Rating3 != nil ||
		r.Rating4 != nil || r.Rating5 != nil || r.Text != nil
}
