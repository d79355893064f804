package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/avalia-edu/avalia-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func changeRequestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "target_type", "payload", "status", "created_by", "created_at", "resolved_by", "resolved_at"})
}

func TestChangeRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO change_requests")).
		WithArgs("INSTITUTION", sqlmock.AnyArg(), "PENDING", int64(7), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	request := &models.ChangeRequest{
		TargetType: models.TargetInstitution,
		Payload:    types.JSONText(`{"target_id":5,"changes":{"name":"X"}}`),
		CreatedBy:  7,
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.Equal(t, int64(3), request.ID)
	require.Equal(t, models.ChangeRequestPending, request.Status)
	require.False(t, request.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, target_type, payload, status")).
		WithArgs(int64(3)).
		WillReturnRows(changeRequestRows().
			AddRow(int64(3), "COURSE", `{"target_id":5,"changes":{"name":"X"}}`, "PENDING", int64(7), time.Now(), nil, nil))

	found, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, models.TargetCourse, found.TargetType)
	require.Equal(t, models.ChangeRequestPending, found.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, target_type, payload, status")).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM change_requests WHERE 1=1 AND status = $1 AND created_by = $2 ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0")).
		WithArgs("PENDING", int64(7)).
		WillReturnRows(changeRequestRows().
			AddRow(int64(1), "SUBJECT", `{}`, "PENDING", int64(7), time.Now(), nil, nil))

	status := models.ChangeRequestPending
	createdBy := int64(7)
	requests, err := repo.List(context.Background(), models.ChangeRequestFilter{Status: &status, CreatedBy: &createdBy})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryResolveCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	resolvedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE institutions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET status = $1, resolved_by = $2, resolved_at = $3 WHERE id = $4 AND status = $5")).
		WithArgs("APPROVED", int64(99), resolvedAt, int64(3), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied := false
	err := repo.Resolve(context.Background(), ResolveParams{
		ID:         3,
		Status:     models.ChangeRequestApproved,
		ResolvedBy: 99,
		ResolvedAt: resolvedAt,
	}, func(tx *sqlx.Tx) error {
		applied = true
		_, err := tx.ExecContext(context.Background(), "UPDATE institutions SET name = $1 WHERE id = $2", "X", int64(5))
		return err
	})
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryResolveAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	resolvedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET status")).
		WithArgs("REJECTED", int64(99), resolvedAt, int64(3), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Resolve(context.Background(), ResolveParams{
		ID:         3,
		Status:     models.ChangeRequestRejected,
		ResolvedBy: 99,
		ResolvedAt: resolvedAt,
	}, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryResolveApplyFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	applyErr := errors.New("target schema mismatch")
	err := repo.Resolve(context.Background(), ResolveParams{
		ID:         3,
		Status:     models.ChangeRequestApproved,
		ResolvedBy: 99,
		ResolvedAt: time.Now().UTC(),
	}, func(tx *sqlx.Tx) error {
		return applyErr
	})
	require.ErrorIs(t, err, applyErr)
	require.NoError(t, mock.ExpectationsWereMet())
}
