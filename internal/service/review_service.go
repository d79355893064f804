package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type reviewRepository interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error)
	FindByID(ctx context.Context, id int64) (*models.Review, error)
	ExistsForTarget(ctx context.Context, userID int64, target models.TargetRef) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id int64) error
	Metrics(ctx context.Context, target models.TargetRef) (*models.ReviewMetrics, error)
}

type reviewInstitutionChecker interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Institution, error)
}

type reviewProfessorChecker interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Professor, error)
}

type reviewSubjectChecker interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Subject, error)
}

type metricsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ReviewService implements the review lifecycle: student submission,
// moderator approval, edit lock after approval, and cached rating metrics.
type ReviewService struct {
	repo         reviewRepository
	institutions reviewInstitutionChecker
	courses      catalogCourseChecker
	professors   reviewProfessorChecker
	subjects     reviewSubjectChecker
	cache        metricsCache
	cacheTTL     time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReviewService constructs a ReviewService. cache may be nil.
func NewReviewService(
	repo reviewRepository,
	institutions reviewInstitutionChecker,
	courses catalogCourseChecker,
	professors reviewProfessorChecker,
	subjects reviewSubjectChecker,
	cache metricsCache,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReviewService{
		repo:         repo,
		institutions: institutions,
		courses:      courses,
		professors:   professors,
		subjects:     subjects,
		cache:        cache,
		cacheTTL:     cacheTTL,
		validator:    validate,
		logger:       logger,
	}
}

// List returns reviews matching the filter, newest first. Pending reviews are
// included only for moderators or for an author listing their own.
func (s *ReviewService) List(ctx context.Context, filter models.ReviewFilter, actor *models.User) ([]models.Review, error) {
	if filter.TargetID != nil && filter.TargetType == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target_id requires target_type")
	}
	if filter.TargetType != nil && !filter.TargetType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid target_type")
	}
	if filter.IncludePending {
		ownListing := actor != nil && filter.UserID != nil && *filter.UserID == actor.ID
		if !actor.IsModerator() && !ownListing {
			return nil, appErrors.ErrForbidden
		}
	}
	reviews, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// Get returns one review. Pending reviews are visible only to their author
// and moderators; everyone else gets NotFound, not Forbidden, so hidden
// reviews are indistinguishable from missing ones.
func (s *ReviewService) Get(ctx context.Context, id int64, actor *models.User) (*models.Review, error) {
	review, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !review.Approved {
		if actor == nil || (actor.ID != review.UserID && !actor.IsModerator()) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
	}
	return review, nil
}

// Create submits a new review. Students only; one review per target per user.
func (s *ReviewService) Create(ctx context.Context, req dto.CreateReviewRequest, author *models.User) (*models.Review, error) {
	if author == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if author.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may submit reviews")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if !req.TargetType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "invalid target_type")
	}

	target, err := resolveTarget(req)
	if err != nil {
		return nil, err
	}
	for _, rating := range []int{req.Rating1, req.Rating2, req.Rating3, req.Rating4, req.Rating5} {
		if rating < 1 || rating > 5 {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "ratings must be between 1 and 5")
		}
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "text must not be blank")
	}

	if err := s.checkTargetExists(ctx, target); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsForTarget(ctx, author.ID, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "review already exists for this target")
	}

	review := &models.Review{
		UserID:    author.ID,
		Rating1:   req.Rating1,
		Rating2:   req.Rating2,
		Rating3:   req.Rating3,
		Rating4:   req.Rating4,
		Rating5:   req.Rating5,
		Text:      text,
		Approved:  false,
		CreatedAt: time.Now().UTC(),
	}
	review.SetTarget(target)

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.FromError(err)
	}
	return review, nil
}

// Update patches a review. Content edits are restricted to the author or a
// moderator while the review is still pending; the approved flag is the
// moderator's approve/reject switch.
func (s *ReviewService) Update(ctx context.Context, id int64, patch dto.UpdateReviewRequest, requester *models.User) (*models.Review, error) {
	if requester == nil {
		return nil, appErrors.ErrUnauthorized
	}
	review, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester.ID != review.UserID && !requester.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	if patch.Approved != nil && !requester.IsModerator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only moderators may change approval")
	}
	if patch.HasContentEdit() && review.Approved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "approved reviews are immutable")
	}

	for _, pair := range []struct {
		src *int
		dst *int
	}{
		{patch.Rating1, &review.Rating1},
		{patch.Rating2, &review.Rating2},
		{patch.Rating3, &review.Rating3},
		{patch.Rating4, &review.Rating4},
		{patch.Rating5, &review.Rating5},
	} {
		if pair.src == nil {
			continue
		}
		if *pair.src < 1 || *pair.src > 5 {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "ratings must be between 1 and 5")
		}
		*pair.dst = *pair.src
	}
	if patch.Text != nil {
		text := strings.TrimSpace(*patch.Text)
		if text == "" {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "text must not be blank")
		}
		review.Text = text
	}

	approvalChanged := false
	if patch.Approved != nil && *patch.Approved != review.Approved {
		review.Approved = *patch.Approved
		approvalChanged = true
	}

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, appErrors.FromError(err)
	}
	if approvalChanged {
		s.invalidateMetrics(ctx, review.Target())
	}
	return review, nil
}

// Delete removes a review. Moderators always may; authors only while pending.
func (s *ReviewService) Delete(ctx context.Context, id int64, requester *models.User) error {
	if requester == nil {
		return appErrors.ErrUnauthorized
	}
	review, err := s.findReview(ctx, id)
	if err != nil {
		return err
	}
	if !requester.IsModerator() {
		if requester.ID != review.UserID {
			return appErrors.ErrForbidden
		}
		if review.Approved {
			return appErrors.Clone(appErrors.ErrConflict, "approved reviews can only be removed by a moderator")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	if review.Approved {
		s.invalidateMetrics(ctx, review.Target())
	}
	return nil
}

// EnsureCanComment returns the review when it accepts comments.
func (s *ReviewService) EnsureCanComment(ctx context.Context, reviewID int64) (*models.Review, error) {
	review, err := s.findReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.Approved {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "review is not approved")
	}
	return review, nil
}

// Metrics aggregates the approved rating subscores for one target, served
// from cache when fresh.
func (s *ReviewService) Metrics(ctx context.Context, target models.TargetRef) (*models.ReviewMetrics, error) {
	if !target.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid target_type")
	}
	if target.ID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target_id must be positive")
	}

	key := metricsCacheKey(target)
	if s.cache != nil {
		var cached models.ReviewMetrics
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("metrics cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	if err := s.checkTargetExists(ctx, target); err != nil {
		return nil, err
	}
	metrics, err := s.repo.Metrics(ctx, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute metrics")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, metrics, s.cacheTTL); err != nil {
			s.logger.Warn("metrics cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return metrics, nil
}

func (s *ReviewService) findReview(ctx context.Context, id int64) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	return review, nil
}

func (s *ReviewService) checkTargetExists(ctx context.Context, target models.TargetRef) error {
	var err error
	switch target.Type {
	case models.TargetInstitution:
		_, err = s.institutions.FindByID(ctx, nil, target.ID)
	case models.TargetCourse:
		var exists bool
		exists, err = s.courses.Exists(ctx, nil, target.ID)
		if err == nil && !exists {
			err = sql.ErrNoRows
		}
	case models.TargetProfessor:
		_, err = s.professors.FindByID(ctx, nil, target.ID)
	case models.TargetSubject:
		_, err = s.subjects.FindByID(ctx, nil, target.ID)
	default:
		return appErrors.Clone(appErrors.ErrUnprocessable, "invalid target_type")
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "target entity not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check target entity")
	}
	return nil
}

func (s *ReviewService) invalidateMetrics(ctx context.Context, target models.TargetRef) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, metricsCacheKey(target)); err != nil {
		s.logger.Warn("metrics cache invalidation failed", zap.Error(err))
	}
}

func metricsCacheKey(target models.TargetRef) string {
	return fmt.Sprintf("metrics:%s:%d", target.Type, target.ID)
}

// resolveTarget checks single occupancy of the four target id fields and
// returns the tagged reference.
func resolveTarget(req dto.CreateReviewRequest) (models.TargetRef, error) {
	var (
		ref   models.TargetRef
		found int
	)
	for _, targetType := range []models.TargetType{
		models.TargetInstitution, models.TargetCourse, models.TargetProfessor, models.TargetSubject,
	} {
		if id := req.TargetID(targetType.Column()); id != nil {
			found++
			ref = models.TargetRef{Type: targetType, ID: *id}
		}
	}
	if found != 1 {
		return models.TargetRef{}, appErrors.Clone(appErrors.ErrUnprocessable, "exactly one target id must be provided")
	}
	if ref.Type != req.TargetType {
		return models.TargetRef{}, appErrors.Clone(appErrors.ErrUnprocessable, "target id does not match target_type")
	}
	if ref.ID <= 0 {
		return models.TargetRef{}, appErrors.Clone(appErrors.ErrUnprocessable, "target id must be positive")
	}
	return ref, nil
}
