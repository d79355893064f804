package models

import "time"

// Institution represents an academic institution. Names are unique globally.
type Institution struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Course is offered by exactly one institution.
type Course struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	InstitutionID int64     `db:"institution_id" json:"institution_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Professor teaches within one course. Names are unique per course.
type Professor struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Subject belongs to one course. Names are unique per course.
type Subject struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CatalogFilter captures the shared listing parameters for catalog entities.
type CatalogFilter struct {
	CourseID      *int64
	InstitutionID *int64
	Skip          int
	Limit         int
}
