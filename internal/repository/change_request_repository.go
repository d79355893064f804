package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avalia-edu/avalia-api/internal/models"
)

const changeRequestColumns = "id, target_type, payload, status, created_by, created_at, resolved_by, resolved_at"

// ChangeRequestRepository handles persistence for staged catalog edits.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository creates a new repository instance.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

// List returns change requests matching the filter, newest first.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	base := "FROM change_requests WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.TargetType != nil {
		conditions = append(conditions, fmt.Sprintf("target_type = $%d", len(args)+1))
		args = append(args, string(*filter.TargetType))
	}
	if filter.CreatedBy != nil {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, *filter.CreatedBy)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	skip, limit := clampWindow(filter.Skip, filter.Limit)

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", changeRequestColumns, base, limit, skip)
	var requests []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// GetByID returns a change request by id.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id int64) (*models.ChangeRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM change_requests WHERE id = $1", changeRequestColumns)
	var request models.ChangeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create persists a normalized change request with status PENDING.
func (r *ChangeRequestRepository) Create(ctx context.Context, request *models.ChangeRequest) error {
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = models.ChangeRequestPending
	}
	const query = `INSERT INTO change_requests (target_type, payload, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		string(request.TargetType), request.Payload, string(request.Status), request.CreatedBy, request.CreatedAt,
	).Scan(&request.ID)
	if err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// ResolveParams carries the resolution stamp for a pending change request.
type ResolveParams struct {
	ID         int64
	Status     models.ChangeRequestStatus
	ResolvedBy int64
	ResolvedAt time.Time
}

// Resolve flips a PENDING request to its terminal status inside one
// transaction. When apply is non-nil it runs first on the same transaction,
// so an approved request's target mutation and status transition commit or
// roll back together. sql.ErrNoRows is returned when the request was already
// resolved by a concurrent moderator.
func (r *ChangeRequestRepository) Resolve(ctx context.Context, params ResolveParams, apply func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve tx: %w", err)
	}

	if apply != nil {
		if err := apply(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	const query = `UPDATE change_requests SET status = $1, resolved_by = $2, resolved_at = $3 WHERE id = $4 AND status = $5`
	res, err := tx.ExecContext(ctx, query,
		string(params.Status), params.ResolvedBy, params.ResolvedAt, params.ID, string(models.ChangeRequestPending),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update change request status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("resolve rows affected: %w", err)
	}
	if rows == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve tx: %w", err)
	}
	return nil
}
