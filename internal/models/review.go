package models

import "time"

// TargetType identifies which catalog entity a review or change request refers to.
type TargetType string

const (
	TargetInstitution TargetType = "INSTITUTION"
	TargetCourse      TargetType = "COURSE"
	TargetProfessor   TargetType = "PROFESSOR"
	TargetSubject     TargetType = "SUBJECT"
)

// Valid reports whether the type belongs to the closed four-way set.
func (t TargetType) Valid() bool {
	switch t {
	case TargetInstitution, TargetCourse, TargetProfessor, TargetSubject:
		return true
	}
	return false
}

// Column returns the reviews table column holding the target foreign key.
// Callers must check Valid first; an unknown type returns the empty string.
func (t TargetType) Column() string {
	switch t {
	case TargetInstitution:
		return "institution_id"
	case TargetCourse:
		return "course_id"
	case TargetProfessor:
		return "professor_id"
	case TargetSubject:
		return "subject_id"
	}
	return ""
}

// TargetColumns lists the four nullable foreign-key columns on reviews.
var TargetColumns = []string{"institution_id", "course_id", "professor_id", "subject_id"}

// TargetRef is the domain-level tagged reference to one catalog entity.
type TargetRef struct {
	Type TargetType
	ID   int64
}

// Review is an anonymous, moderated rating of exactly one catalog entity.
// Exactly one of the four foreign keys is non-nil and matches TargetType.
type Review struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"-"`
	TargetType    TargetType `db:"target_type" json:"target_type"`
	InstitutionID *int64     `db:"institution_id" json:"institution_id,omitempty"`
	CourseID      *int64     `db:"course_id" json:"course_id,omitempty"`
	ProfessorID   *int64     `db:"professor_id" json:"professor_id,omitempty"`
	SubjectID     *int64     `db:"subject_id" json:"subject_id,omitempty"`
	Rating1       int        `db:"rating_1" json:"rating_1"`
	Rating2       int        `db:"rating_2" json:"rating_2"`
	Rating3       int        `db:"rating_3" json:"rating_3"`
	Rating4       int        `db:"rating_4" json:"rating_4"`
	Rating5       int        `db:"rating_5" json:"rating_5"`
	Text          string     `db:"text" json:"text"`
	Approved      bool       `db:"approved" json:"approved"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Target returns the tagged reference this review points at.
func (r *Review) Target() TargetRef {
	ref := TargetRef{Type: r.TargetType}
	switch r.TargetType {
	case TargetInstitution:
		if r.InstitutionID != nil {
			ref.ID = *r.InstitutionID
		}
	case TargetCourse:
		if r.CourseID != nil {
			ref.ID = *r.CourseID
		}
	case TargetProfessor:
		if r.ProfessorID != nil {
			ref.ID = *r.ProfessorID
		}
	case TargetSubject:
		if r.SubjectID != nil {
			ref.ID = *r.SubjectID
		}
	}
	return ref
}

// SetTarget assigns the matching foreign key and clears the other three.
func (r *Review) SetTarget(ref TargetRef) {
	r.TargetType = ref.Type
	r.InstitutionID, r.CourseID, r.ProfessorID, r.SubjectID = nil, nil, nil, nil
	id := ref.ID
	switch ref.Type {
	case TargetInstitution:
		r.InstitutionID = &id
	case TargetCourse:
		r.CourseID = &id
	case TargetProfessor:
		r.ProfessorID = &id
	case TargetSubject:
		r.SubjectID = &id
	}
}

// ReviewFilter constrains review listing queries.
type ReviewFilter struct {
	TargetType     *TargetType
	TargetID       *int64
	UserID         *int64
	IncludePending bool
	Skip           int
	Limit          int
}

// ReviewMetrics aggregates the five rating subscores over approved reviews.
// Averages are nil when no approved review exists for the target.
type ReviewMetrics struct {
	Count          int      `json:"count"`
	AverageRating1 *float64 `json:"average_rating_1"`
	AverageRating2 *float64 `json:"average_rating_2"`
	AverageRating3 *float64 `json:"average_rating_3"`
	AverageRating4 *float64 `json:"average_rating_4"`
	AverageRating5 *float64 `json:"average_rating_5"`
	AverageOverall *float64 `json:"average_overall"`
}
