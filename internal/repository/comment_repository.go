package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avalia-edu/avalia-api/internal/models"
)

const commentColumns = "id, review_id, user_id, text, is_official, created_at"

// CommentRepository handles persistence for review comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new repository instance.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByReview returns a review's comments oldest first.
func (r *CommentRepository) ListByReview(ctx context.Context, reviewID int64, skip, limit int) ([]models.Comment, error) {
	skip, limit = clampWindow(skip, limit)
	query := fmt.Sprintf("SELECT %s FROM comments WHERE review_id = $1 ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d", commentColumns, limit, skip)
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, reviewID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// FindByID returns a comment by id.
func (r *CommentRepository) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	query := fmt.Sprintf("SELECT %s FROM comments WHERE id = $1", commentColumns)
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Create persists a new comment.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO comments (review_id, user_id, text, is_official, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		comment.ReviewID, comment.UserID, comment.Text, comment.IsOfficial, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// Update persists text and official-marker changes.
func (r *CommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	const query = `UPDATE comments SET text = $1, is_official = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, comment.Text, comment.IsOfficial, comment.ID); err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// Delete removes a comment record.
func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
