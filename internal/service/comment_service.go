package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type commentRepository interface {
	ListByReview(ctx context.Context, reviewID int64, skip, limit int) ([]models.Comment, error)
	FindByID(ctx context.Context, id int64) (*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id int64) error
}

type commentReviewGate interface {
	EnsureCanComment(ctx context.Context, reviewID int64) (*models.Review, error)
}

type commentAuthorLoader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// CommentService manages comments under approved reviews. The official
// marker reflects the author's current validated state on every write.
type CommentService struct {
	repo      commentRepository
	reviews   commentReviewGate
	users     commentAuthorLoader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommentService constructs a CommentService.
func NewCommentService(repo commentRepository, reviews commentReviewGate, users commentAuthorLoader, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CommentService{repo: repo, reviews: reviews, users: users, validator: validate, logger: logger}
}

// List returns the comments of an approved review, oldest first.
func (s *CommentService) List(ctx context.Context, reviewID int64, skip, limit int) ([]models.Comment, error) {
	if _, err := s.reviews.EnsureCanComment(ctx, reviewID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListByReview(ctx, reviewID, skip, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// Create attaches a comment to an approved review.
func (s *CommentService) Create(ctx context.Context, req dto.CreateCommentRequest, author *models.User) (*models.Comment, error) {
	if author == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "text must not be blank")
	}
	if _, err := s.reviews.EnsureCanComment(ctx, req.ReviewID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ReviewID:   req.ReviewID,
		UserID:     author.ID,
		Text:       text,
		IsOfficial: models.OfficialAuthor(author),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.FromError(err)
	}
	return comment, nil
}

// Update patches a comment. Author or moderator only. The official flag is
// re-derived from the author's current account, not frozen at creation.
func (s *CommentService) Update(ctx context.Context, id int64, patch dto.UpdateCommentRequest, requester *models.User) (*models.Comment, error) {
	comment, err := s.findAuthorized(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if patch.Text != nil {
		text := strings.TrimSpace(*patch.Text)
		if text == "" {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "text must not be blank")
		}
		comment.Text = text
	}

	author, err := s.users.FindByID(ctx, comment.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			author = nil
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment author")
		}
	}
	comment.IsOfficial = models.OfficialAuthor(author)

	if err := s.repo.Update(ctx, comment); err != nil {
		return nil, appErrors.FromError(err)
	}
	return comment, nil
}

// Delete removes a comment. Author or moderator only.
func (s *CommentService) Delete(ctx context.Context, id int64, requester *models.User) error {
	if _, err := s.findAuthorized(ctx, id, requester); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	return nil
}

func (s *CommentService) findAuthorized(ctx context.Context, id int64, requester *models.User) (*models.Comment, error) {
	if requester == nil {
		return nil, appErrors.ErrUnauthorized
	}
	comment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	if requester.ID != comment.UserID && !requester.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	return comment, nil
}
