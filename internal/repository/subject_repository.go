package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns subjects ordered alphabetically, optionally per course.
func (r *SubjectRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Subject, int, error) {
	base := "FROM subjects WHERE 1=1"
	var args []interface{}

	if filter.CourseID != nil {
		base += fmt.Sprintf(" AND course_id = $%d", len(args)+1)
		args = append(args, *filter.CourseID)
	}

	skip, limit := clampWindow(filter.Skip, filter.Limit)

	query := fmt.Sprintf("SELECT id, name, course_id, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, limit, skip)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Subject, error) {
	const query = `SELECT id, name, course_id, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := sqlx.GetContext(ctx, r.exec(exec), &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ExistsByName checks per-course name uniqueness.
func (r *SubjectRepository) ExistsByName(ctx context.Context, exec sqlx.ExtContext, name string, courseID, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM subjects WHERE course_id = $1 AND LOWER(name) = LOWER($2)"
	args := []interface{}{courseID, name}
	if excludeID > 0 {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}

	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject name: %w", err)
	}
	return true, nil
}

// Create persists a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (name, course_id, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, subject.Name, subject.CourseID, subject.CreatedAt, subject.UpdatedAt).Scan(&subject.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "subject name already exists for the course")
		}
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies a subject, optionally inside a caller-owned transaction.
func (r *SubjectRepository) Update(ctx context.Context, exec sqlx.ExtContext, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = $1, course_id = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.exec(exec).ExecContext(ctx, query, subject.Name, subject.CourseID, subject.UpdatedAt, subject.ID); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "subject name already exists for the course")
		}
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete removes a subject record.
func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subject rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
