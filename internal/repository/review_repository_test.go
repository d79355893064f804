package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

func reviewRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "target_type", "institution_id", "course_id", "professor_id", "subject_id",
		"rating_1", "rating_2", "rating_3", "rating_4", "rating_5", "text", "approved", "created_at",
	})
}

func TestReviewRepositoryListApprovedOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews WHERE 1=1 AND approved = TRUE AND target_type = $1 AND professor_id = $2 ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0")).
		WithArgs("PROFESSOR", int64(5)).
		WillReturnRows(reviewRows().
			AddRow(int64(1), int64(7), "PROFESSOR", nil, nil, int64(5), nil, 5, 4, 3, 4, 5, "good", true, time.Now()))

	targetType := models.TargetProfessor
	targetID := int64(5)
	reviews, err := repo.List(context.Background(), models.ReviewFilter{TargetType: &targetType, TargetID: &targetID})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.True(t, reviews[0].Approved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListIncludePending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews WHERE 1=1 AND user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 50 OFFSET 10")).
		WithArgs(int64(7)).
		WillReturnRows(reviewRows())

	userID := int64(7)
	_, err := repo.List(context.Background(), models.ReviewFilter{UserID: &userID, IncludePending: true, Skip: 10, Limit: 50})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	professorID := int64(5)
	review := &models.Review{
		UserID:      7,
		TargetType:  models.TargetProfessor,
		ProfessorID: &professorID,
		Rating1:     5, Rating2: 4, Rating3: 3, Rating4: 4, Rating5: 5,
		Text: "good",
	}
	require.NoError(t, repo.Create(context.Background(), review))
	require.Equal(t, int64(11), review.ID)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
		WillReturnError(&pq.Error{Code: "23505"})
	err := repo.Create(context.Background(), review)
	require.ErrorIs(t, err, appErrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryExistsForTarget(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)
	target := models.TargetRef{Type: models.TargetCourse, ID: 3}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM reviews WHERE user_id = $1 AND target_type = $2 AND course_id = $3 LIMIT 1")).
		WithArgs(int64(7), "COURSE", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	exists, err := repo.ExistsForTarget(context.Background(), 7, target)
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM reviews")).
		WithArgs(int64(8), "COURSE", int64(3)).
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.ExistsForTarget(context.Background(), 8, target)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryMetrics(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews WHERE target_type = $1 AND subject_id = $2 AND approved = TRUE")).
		WithArgs("SUBJECT", int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg_1", "avg_2", "avg_3", "avg_4", "avg_5"}).
			AddRow(4, 4.5, 4.0, 3.5, 4.0, 5.0))

	metrics, err := repo.Metrics(context.Background(), models.TargetRef{Type: models.TargetSubject, ID: 9})
	require.NoError(t, err)
	require.Equal(t, 4, metrics.Count)
	require.NotNil(t, metrics.AverageOverall)
	require.InDelta(t, 4.2, *metrics.AverageOverall, 0.0001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryMetricsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews WHERE target_type = $1 AND institution_id = $2 AND approved = TRUE")).
		WithArgs("INSTITUTION", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg_1", "avg_2", "avg_3", "avg_4", "avg_5"}).
			AddRow(0, nil, nil, nil, nil, nil))

	metrics, err := repo.Metrics(context.Background(), models.TargetRef{Type: models.TargetInstitution, ID: 1})
	require.NoError(t, err)
	require.Zero(t, metrics.Count)
	require.Nil(t, metrics.AverageRating1)
	require.Nil(t, metrics.AverageOverall)
	require.NoError(t, mock.ExpectationsWereMet())
}
