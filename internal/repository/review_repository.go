package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

const reviewColumns = "id, user_id, target_type, institution_id, course_id, professor_id, subject_id, rating_1, rating_2, rating_3, rating_4, rating_5, text, approved, created_at"

// ReviewRepository handles persistence for reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new repository instance.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// List returns reviews matching the filter, newest first.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error) {
	base := "FROM reviews WHERE 1=1"
	var conditions []string
	var args []interface{}

	if !filter.IncludePending {
		conditions = append(conditions, "approved = TRUE")
	}
	if filter.TargetType != nil {
		conditions = append(conditions, fmt.Sprintf("target_type = $%d", len(args)+1))
		args = append(args, string(*filter.TargetType))
		if filter.TargetID != nil {
			// Column names come from the closed TargetType set, never from input.
			conditions = append(conditions, fmt.Sprintf("%s = $%d", filter.TargetType.Column(), len(args)+1))
			args = append(args, *filter.TargetID)
		}
	}
	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, *filter.UserID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	skip, limit := clampWindow(filter.Skip, filter.Limit)

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", reviewColumns, base, limit, skip)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// FindByID returns a review by id regardless of approval state.
func (r *ReviewRepository) FindByID(ctx context.Context, id int64) (*models.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE id = $1", reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// ExistsForTarget reports whether the user already reviewed the target.
func (r *ReviewRepository) ExistsForTarget(ctx context.Context, userID int64, target models.TargetRef) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM reviews WHERE user_id = $1 AND target_type = $2 AND %s = $3 LIMIT 1", target.Type.Column())
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, string(target.Type), target.ID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check review uniqueness: %w", err)
	}
	return true, nil
}

// Create persists a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reviews (user_id, target_type, institution_id, course_id, professor_id, subject_id, rating_1, rating_2, rating_3, rating_4, rating_5, text, approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		review.UserID, string(review.TargetType),
		review.InstitutionID, review.CourseID, review.ProfessorID, review.SubjectID,
		review.Rating1, review.Rating2, review.Rating3, review.Rating4, review.Rating5,
		review.Text, review.Approved, review.CreatedAt,
	).Scan(&review.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "review already exists for this target")
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// Update persists rating, text and approval changes.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	const query = `UPDATE reviews SET rating_1 = $1, rating_2 = $2, rating_3 = $3, rating_4 = $4, rating_5 = $5, text = $6, approved = $7 WHERE id = $8`
	if _, err := r.db.ExecContext(ctx, query,
		review.Rating1, review.Rating2, review.Rating3, review.Rating4, review.Rating5,
		review.Text, review.Approved, review.ID,
	); err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// Delete removes a review and its comments rely on FK cascade.
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// Metrics aggregates rating averages over approved reviews for one target.
func (r *ReviewRepository) Metrics(ctx context.Context, target models.TargetRef) (*models.ReviewMetrics, error) {
	query := fmt.Sprintf(`SELECT COUNT(id) AS count,
		AVG(rating_1) AS avg_1, AVG(rating_2) AS avg_2, AVG(rating_3) AS avg_3, AVG(rating_4) AS avg_4, AVG(rating_5) AS avg_5
		FROM reviews WHERE target_type = $1 AND %s = $2 AND approved = TRUE`, target.Type.Column())

	var row struct {
		Count int             `db:"count"`
		Avg1  sql.NullFloat64 `db:"avg_1"`
		Avg2  sql.NullFloat64 `db:"avg_2"`
		Avg3  sql.NullFloat64 `db:"avg_3"`
		Avg4  sql.NullFloat64 `db:"avg_4"`
		Avg5  sql.NullFloat64 `db:"avg_5"`
	}
	if err := r.db.GetContext(ctx, &row, query, string(target.Type), target.ID); err != nil {
		return nil, fmt.Errorf("review metrics: %w", err)
	}

	metrics := &models.ReviewMetrics{Count: row.Count}
	metrics.AverageRating1 = nullableFloat(row.Avg1)
	metrics.AverageRating2 = nullableFloat(row.Avg2)
	metrics.AverageRating3 = nullableFloat(row.Avg3)
	metrics.AverageRating4 = nullableFloat(row.Avg4)
	metrics.AverageRating5 = nullableFloat(row.Avg5)

	if row.Avg1.Valid && row.Avg2.Valid && row.Avg3.Valid && row.Avg4.Valid && row.Avg5.Valid {
		overall := (row.Avg1.Float64 + row.Avg2.Float64 + row.Avg3.Float64 + row.Avg4.Float64 + row.Avg5.Float64) / 5
		metrics.AverageOverall = &overall
	}
	return metrics, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
