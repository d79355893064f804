package dto

// CreateInstitutionRequest captures fields for creating institutions.
type CreateInstitutionRequest struct {
	Name string `json:"name" validate:"required"`
}

// InstitutionUpdate patches institution fields. It doubles as the update
// schema change-request payloads are validated against.
type InstitutionUpdate struct {
	Name *string `json:"name,omitempty"`
}

// CreateCourseRequest captures fields for creating courses.
type CreateCourseRequest struct {
	Name          string `json:"name" validate:"required"`
	InstitutionID int64  `json:"institution_id" validate:"required,gt=0"`
}

// CourseUpdate patches course fields.
type CourseUpdate struct {
	Name          *string `json:"name,omitempty"`
	InstitutionID *int64  `json:"institution_id,omitempty"`
}

// CreateProfessorRequest captures fields for creating professors.
type CreateProfessorRequest struct {
	Name     string `json:"name" validate:"required"`
	CourseID int64  `json:"course_id" validate:"required,gt=0"`
}

// ProfessorUpdate patches professor fields.
type ProfessorUpdate struct {
	Name     *string `json:"name,omitempty"`
	CourseID *int64  `json:"course_id,omitempty"`
}

// CreateSubjectRequest captures fields for creating subjects.
type CreateSubjectRequest struct {
	Name     string `json:"name" validate:"required"`
	CourseID int64  `json:"course_id" validate:"required,gt=0"`
}

// SubjectUpdate patches subject fields.
type SubjectUpdate struct {
	Name     *string `json:"name,omitempty"`
	CourseID *int64  `json:"course_id,omitempty"`
}
