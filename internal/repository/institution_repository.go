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

// InstitutionRepository handles persistence for institutions. Read and write
// methods take an optional sqlx.ExtContext so the change-request engine can
// stage writes on its own transaction.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository creates a new repository instance.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

func (r *InstitutionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns institutions ordered alphabetically with a total count.
func (r *InstitutionRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Institution, int, error) {
	skip, limit := clampWindow(filter.Skip, filter.Limit)

	query := fmt.Sprintf("SELECT id, name, created_at, updated_at FROM institutions ORDER BY name ASC LIMIT %d OFFSET %d", limit, skip)
	var institutions []models.Institution
	if err := r.db.SelectContext(ctx, &institutions, query); err != nil {
		return nil, 0, fmt.Errorf("list institutions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM institutions"); err != nil {
		return nil, 0, fmt.Errorf("count institutions: %w", err)
	}
	return institutions, total, nil
}

// FindByID returns an institution by id.
func (r *InstitutionRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Institution, error) {
	const query = `SELECT id, name, created_at, updated_at FROM institutions WHERE id = $1`
	var institution models.Institution
	if err := sqlx.GetContext(ctx, r.exec(exec), &institution, query, id); err != nil {
		return nil, err
	}
	return &institution, nil
}

// ExistsByName checks global name uniqueness.
func (r *InstitutionRepository) ExistsByName(ctx context.Context, exec sqlx.ExtContext, name string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM institutions WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check institution name: %w", err)
	}
	return true, nil
}

// Create persists a new institution.
func (r *InstitutionRepository) Create(ctx context.Context, institution *models.Institution) error {
	now := time.Now().UTC()
	if institution.CreatedAt.IsZero() {
		institution.CreatedAt = now
	}
	institution.UpdatedAt = now

	const query = `INSERT INTO institutions (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, institution.Name, institution.CreatedAt, institution.UpdatedAt).Scan(&institution.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "institution name already exists")
		}
		return fmt.Errorf("create institution: %w", err)
	}
	return nil
}

// Update modifies an institution, optionally inside a caller-owned transaction.
func (r *InstitutionRepository) Update(ctx context.Context, exec sqlx.ExtContext, institution *models.Institution) error {
	institution.UpdatedAt = time.Now().UTC()
	const query = `UPDATE institutions SET name = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, institution.Name, institution.UpdatedAt, institution.ID); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "institution name already exists")
		}
		return fmt.Errorf("update institution: %w", err)
	}
	return nil
}

// Delete removes an institution record.
func (r *InstitutionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM institutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete institution: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete institution rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
