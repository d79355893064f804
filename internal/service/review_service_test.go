package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type reviewRepoStub struct {
	reviews map[int64]*models.Review
	nextID  int64

	metrics     *models.ReviewMetrics
	metricsHits int
}

func newReviewRepoStub() *reviewRepoStub {
	return &reviewRepoStub{reviews: make(map[int64]*models.Review), nextID: 1}
}

func (s *reviewRepoStub) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error) {
	var result []models.Review
	for _, review := range s.reviews {
		if !filter.IncludePending && !review.Approved {
			continue
		}
		if filter.UserID != nil && review.UserID != *filter.UserID {
			continue
		}
		result = append(result, *review)
	}
	return result, nil
}

func (s *reviewRepoStub) FindByID(ctx context.Context, id int64) (*models.Review, error) {
	if review, ok := s.reviews[id]; ok {
		clone := *review
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reviewRepoStub) ExistsForTarget(ctx context.Context, userID int64, target models.TargetRef) (bool, error) {
	for _, review := range s.reviews {
		if review.UserID == userID && review.Target() == target {
			return true, nil
		}
	}
	return false, nil
}

func (s *reviewRepoStub) Create(ctx context.Context, review *models.Review) error {
	review.ID = s.nextID
	s.nextID++
	stored := *review
	s.reviews[review.ID] = &stored
	return nil
}

func (s *reviewRepoStub) Update(ctx context.Context, review *models.Review) error {
	if _, ok := s.reviews[review.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *review
	s.reviews[review.ID] = &stored
	return nil
}

func (s *reviewRepoStub) Delete(ctx context.Context, id int64) error {
	if _, ok := s.reviews[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.reviews, id)
	return nil
}

func (s *reviewRepoStub) Metrics(ctx context.Context, target models.TargetRef) (*models.ReviewMetrics, error) {
	s.metricsHits++
	if s.metrics != nil {
		clone := *s.metrics
		return &clone, nil
	}
	return &models.ReviewMetrics{}, nil
}

type institutionCheckerStub struct{ ids map[int64]bool }

func (s institutionCheckerStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Institution, error) {
	if s.ids[id] {
		return &models.Institution{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type courseCheckerStub struct{ ids map[int64]bool }

func (s courseCheckerStub) Exists(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error) {
	return s.ids[id], nil
}

type professorCheckerStub struct{ ids map[int64]bool }

func (s professorCheckerStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Professor, error) {
	if s.ids[id] {
		return &models.Professor{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type subjectCheckerStub struct{ ids map[int64]bool }

func (s subjectCheckerStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Subject, error) {
	if s.ids[id] {
		return &models.Subject{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type cacheStub struct {
	entries map[string][]byte
	sets    int
	deletes int
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string][]byte)}
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = payload
	s.sets++
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(s.entries, pattern)
	s.deletes++
	return nil
}

func newReviewServiceForTest(repo *reviewRepoStub, cache *cacheStub) *ReviewService {
	known := map[int64]bool{1: true, 2: true}
	var mc metricsCache
	if cache != nil {
		mc = cache
	}
	return NewReviewService(
		repo,
		institutionCheckerStub{ids: known},
		courseCheckerStub{ids: known},
		professorCheckerStub{ids: known},
		subjectCheckerStub{ids: known},
		mc,
		time.Minute,
		nil,
		nil,
	)
}

func validReviewRequest() dto.CreateReviewRequest {
	id := int64(1)
	return dto.CreateReviewRequest{
		TargetType:  models.TargetProfessor,
		ProfessorID: &id,
		Rating1:     5,
		Rating2:     4,
		Rating3:     3,
		Rating4:     4,
		Rating5:     5,
		Text:        "Clear lectures, fair grading.",
	}
}

func TestReviewServiceCreate(t *testing.T) {
	repo := newReviewRepoStub()
	svc := newReviewServiceForTest(repo, nil)

	review, err := svc.Create(context.Background(), validReviewRequest(), student())
	require.NoError(t, err)
	require.False(t, review.Approved)
	require.Equal(t, models.TargetProfessor, review.TargetType)
	require.NotNil(t, review.ProfessorID)
	require.Nil(t, review.InstitutionID)
	require.Equal(t, int64(7), review.UserID)
}

func TestReviewServiceCreateStudentsOnly(t *testing.T) {
	svc := newReviewServiceForTest(newReviewRepoStub(), nil)

	for _, role := range []models.UserRole{models.RoleProfessor, models.RoleInstitution, models.RoleModerator} {
		_, err := svc.Create(context.Background(), validReviewRequest(), &models.User{ID: 1, Role: role})
		require.ErrorIs(t, err, appErrors.ErrForbidden, "role %s", role)
	}
}

func TestReviewServiceCreateTargetRules(t *testing.T) {
	svc := newReviewServiceForTest(newReviewRepoStub(), nil)
	one := int64(1)
	missing := int64(404)

	req := validReviewRequest()
	req.InstitutionID = &one
	_, err := svc.Create(context.Background(), req, student())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	req = validReviewRequest()
	req.ProfessorID = nil
	req.CourseID = &one
	_, err = svc.Create(context.Background(), req, student())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	req = validReviewRequest()
	req.ProfessorID = &missing
	_, err = svc.Create(context.Background(), req, student())
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestReviewServiceCreateRatingBounds(t *testing.T) {
	svc := newReviewServiceForTest(newReviewRepoStub(), nil)

	req := validReviewRequest()
	req.Rating3 = 6
	_, err := svc.Create(context.Background(), req, student())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	req = validReviewRequest()
	req.Text = "   "
	_, err = svc.Create(context.Background(), req, student())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)
}

func TestReviewServiceCreateDuplicate(t *testing.T) {
	repo := newReviewRepoStub()
	svc := newReviewServiceForTest(repo, nil)

	_, err := svc.Create(context.Background(), validReviewRequest(), student())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validReviewRequest(), student())
	require.ErrorIs(t, err, appErrors.ErrConflict)

	// A different student may review the same target.
	_, err = svc.Create(context.Background(), validReviewRequest(), &models.User{ID: 8, Role: models.RoleStudent})
	require.NoError(t, err)
}

func TestReviewServiceGetHidesPending(t *testing.T) {
	repo := newReviewRepoStub()
	svc := newReviewServiceForTest(repo, nil)

	created, err := svc.Create(context.Background(), validReviewRequest(), student())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), created.ID, nil)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Get(context.Background(), created.ID, &models.User{ID: 55, Role: models.RoleStudent})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	found, err := svc.Get(context.Background(), created.ID, student())
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.Get(context.Background(), created.ID, moderator())
	require.NoError(t, err)
}

func TestReviewServiceListPendingVisibility(t *testing.T) {
	repo := newReviewRepoStub()
	svc := newReviewServiceForTest(repo, nil)

	_, err := svc.Create(context.Background(), validReviewRequest(), student())
	require.NoError(t, err)

	_, err = svc.List(context.Background(), models.ReviewFilter{IncludePending: true}, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	ownID := int64(7)
	own, err := svc.List(context.Background(), models.ReviewFilter{IncludePending: true, UserID: &ownID}, student())
	require.NoError(t, err)
	require.Len(t, own, 1)

	all, err := svc.List(context.Background(), models.ReviewFilter{IncludePending: true}, moderator())
	require.NoError(t, err)
	require.Len(t, all, 1)

	public, err := svc.List(context.Background(), models.ReviewFilter{}, nil)
	require.NoError(t, err)
	require.Empty(t, public)
}

func TestReviewServiceListTargetIDRequiresType(t *testing.T) {
	svc := newReviewServiceForTest(newReviewRepoStub(), nil)
	id := int64(1)
	_, err := svc.List(context.Background(), models.ReviewFilter{TargetID: &id}, nil)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestReviewServiceUpdateApprovalLock(t *testing.T) {
	repo := newReviewRepoStub()
	cache := newCacheStub()
	svc := newReviewServiceForTest(repo, cache)

	created, err := svc.Create(context.Background(), validReviewRequest(), student())
	require.NoError(t, err)

	approved := true
	_, err = svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Approved: &approved}, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	updated, err := svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Approved: &approved}, moderator())
	require.NoError(t, err)
	require.True(t, updated.Approved)
	require.Equal(t, 1, cache.deletes)

	text := "revised"
	_, err = svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Text: &text}, student())
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestReviewServiceUpdateContent(t *testing.T) {
	repo := newReviewRepoStub()
	svc := newReviewServiceForTest(repo, nil)

	created, err := svc.Create(context.Background(), validReviewRequest(), student())
	require.NoError(t, err)

	text := "  updated text  "
	rating := 2
	updated, err := svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Text: &text, Rating1: &rating}, student())
	require.NoError(t, err)
	require.Equal(t, "updated text", updated.Text)
	require.Equal(t, 2, updated.Rating1)
	require.Equal(t, 4, updated.Rating2)

	bad := 0
	_, err = svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Rating2: &bad}, student())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	empty := " "
	_, err = svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Text: &empty}, student())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	_, err = svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Text: &text}, &models.User{ID: 55, Role: models.RoleStudent})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestReviewServiceDeleteRules(t *testing.T) {
	repo := newReviewRepoStub()
	svc := newReviewServiceForTest(repo, nil)

	created, err := svc.Create(context.Background(), validReviewRequest(), student())
	require.NoError(t, err)

	err = svc.Delete(context.Background(), created.ID, &models.User{ID: 55, Role: models.RoleStudent})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	approved := true
	_, err = svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Approved: &approved}, moderator())
	require.NoError(t, err)

	err = svc.Delete(context.Background(), created.ID, student())
	require.ErrorIs(t, err, appErrors.ErrConflict)

	err = svc.Delete(context.Background(), created.ID, moderator())
	require.NoError(t, err)
	require.Empty(t, repo.reviews)
}

func TestReviewServiceEnsureCanComment(t *testing.T) {
	repo := newReviewRepoStub()
	svc := newReviewServiceForTest(repo, nil)

	created, err := svc.Create(context.Background(), validReviewRequest(), student())
	require.NoError(t, err)

	_, err = svc.EnsureCanComment(context.Background(), created.ID)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	approved := true
	_, err = svc.Update(context.Background(), created.ID, dto.UpdateReviewRequest{Approved: &approved}, moderator())
	require.NoError(t, err)

	review, err := svc.EnsureCanComment(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, review.Approved)

	_, err = svc.EnsureCanComment(context.Background(), 404)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestReviewServiceMetricsCaching(t *testing.T) {
	repo := newReviewRepoStub()
	average := 4.5
	repo.metrics = &models.ReviewMetrics{
		Count:          2,
		AverageRating1: &average,
		AverageRating2: &average,
		AverageRating3: &average,
		AverageRating4: &average,
		AverageRating5: &average,
		AverageOverall: &average,
	}
	cache := newCacheStub()
	svc := newReviewServiceForTest(repo, cache)

	target := models.TargetRef{Type: models.TargetProfessor, ID: 1}
	first, err := svc.Metrics(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, 2, first.Count)
	require.Equal(t, 1, repo.metricsHits)
	require.Equal(t, 1, cache.sets)

	second, err := svc.Metrics(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, 2, second.Count)
	require.Equal(t, 1, repo.metricsHits, "second read must come from cache")
}

func TestReviewServiceMetricsValidation(t *testing.T) {
	svc := newReviewServiceForTest(newReviewRepoStub(), nil)

	_, err := svc.Metrics(context.Background(), models.TargetRef{Type: "BUILDING", ID: 1})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Metrics(context.Background(), models.TargetRef{Type: models.TargetCourse, ID: 0})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Metrics(context.Background(), models.TargetRef{Type: models.TargetCourse, ID: 404})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
