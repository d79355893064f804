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

// ProfessorRepository handles persistence for professors.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository creates a new repository instance.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

func (r *ProfessorRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns professors ordered alphabetically, optionally per course.
func (r *ProfessorRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Professor, int, error) {
	base := "FROM professors WHERE 1=1"
	var args []interface{}

	if filter.CourseID != nil {
		base += fmt.Sprintf(" AND course_id = $%d", len(args)+1)
		args = append(args, *filter.CourseID)
	}

	skip, limit := clampWindow(filter.Skip, filter.Limit)

	query := fmt.Sprintf("SELECT id, name, course_id, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, limit, skip)
	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list professors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count professors: %w", err)
	}
	return professors, total, nil
}

// FindByID returns a professor by id.
func (r *ProfessorRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Professor, error) {
	const query = `SELECT id, name, course_id, created_at, updated_at FROM professors WHERE id = $1`
	var professor models.Professor
	if err := sqlx.GetContext(ctx, r.exec(exec), &professor, query, id); err != nil {
		return nil, err
	}
	return &professor, nil
}

// ExistsByName checks per-course name uniqueness.
func (r *ProfessorRepository) ExistsByName(ctx context.Context, exec sqlx.ExtContext, name string, courseID, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM professors WHERE course_id = $1 AND LOWER(name) = LOWER($2)"
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
		return false, fmt.Errorf("check professor name: %w", err)
	}
	return true, nil
}

// Create persists a new professor.
func (r *ProfessorRepository) Create(ctx context.Context, professor *models.Professor) error {
	now := time.Now().UTC()
	if professor.CreatedAt.IsZero() {
		professor.CreatedAt = now
	}
	professor.UpdatedAt = now

	const query = `INSERT INTO professors (name, course_id, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, professor.Name, professor.CourseID, professor.CreatedAt, professor.UpdatedAt).Scan(&professor.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "professor name already exists for the course")
		}
		return fmt.Errorf("create professor: %w", err)
	}
	return nil
}

// Update modifies a professor, optionally inside a caller-owned transaction.
func (r *ProfessorRepository) Update(ctx context.Context, exec sqlx.ExtContext, professor *models.Professor) error {
	professor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE professors SET name = $1, course_id = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.exec(exec).ExecContext(ctx, query, professor.Name, professor.CourseID, professor.UpdatedAt, professor.ID); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "professor name already exists for the course")
		}
		return fmt.Errorf("update professor: %w", err)
	}
	return nil
}

// Delete removes a professor record.
func (r *ProfessorRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM professors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete professor: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete professor rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
