package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type institutionRepoStub struct {
	institutions map[int64]*models.Institution
	nextID       int64
}

func newInstitutionRepoStub() *institutionRepoStub {
	return &institutionRepoStub{institutions: make(map[int64]*models.Institution), nextID: 1}
}

func (s *institutionRepoStub) List(ctx context.Context, filter models.CatalogFilter) ([]models.Institution, int, error) {
	var result []models.Institution
	for _, institution := range s.institutions {
		result = append(result, *institution)
	}
	return result, len(result), nil
}

func (s *institutionRepoStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Institution, error) {
	if institution, ok := s.institutions[id]; ok {
		clone := *institution
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *institutionRepoStub) ExistsByName(ctx context.Context, exec sqlx.ExtContext, name string, excludeID int64) (bool, error) {
	for _, institution := range s.institutions {
		if institution.Name == name && institution.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *institutionRepoStub) Create(ctx context.Context, institution *models.Institution) error {
	institution.ID = s.nextID
	s.nextID++
	stored := *institution
	s.institutions[institution.ID] = &stored
	return nil
}

func (s *institutionRepoStub) Update(ctx context.Context, exec sqlx.ExtContext, institution *models.Institution) error {
	if _, ok := s.institutions[institution.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *institution
	s.institutions[institution.ID] = &stored
	return nil
}

func (s *institutionRepoStub) Delete(ctx context.Context, id int64) error {
	if _, ok := s.institutions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.institutions, id)
	return nil
}

func TestInstitutionServiceCreate(t *testing.T) {
	repo := newInstitutionRepoStub()
	svc := NewInstitutionService(repo, nil, nil)

	created, err := svc.Create(context.Background(), dto.CreateInstitutionRequest{Name: "  Universidade   Federal  "}, moderator())
	require.NoError(t, err)
	require.Equal(t, "Universidade Federal", created.Name)
	require.NotZero(t, created.ID)

	_, err = svc.Create(context.Background(), dto.CreateInstitutionRequest{Name: "Universidade Federal"}, moderator())
	require.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Create(context.Background(), dto.CreateInstitutionRequest{Name: "Outra"}, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(context.Background(), dto.CreateInstitutionRequest{Name: "   "}, moderator())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)
}

func TestInstitutionServiceUpdate(t *testing.T) {
	repo := newInstitutionRepoStub()
	svc := NewInstitutionService(repo, nil, nil)

	first, err := svc.Create(context.Background(), dto.CreateInstitutionRequest{Name: "Alfa"}, moderator())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), dto.CreateInstitutionRequest{Name: "Beta"}, moderator())
	require.NoError(t, err)

	name := "Gama"
	updated, err := svc.Update(context.Background(), first.ID, dto.InstitutionUpdate{Name: &name}, moderator())
	require.NoError(t, err)
	require.Equal(t, "Gama", updated.Name)

	taken := "Beta"
	_, err = svc.Update(context.Background(), first.ID, dto.InstitutionUpdate{Name: &taken}, moderator())
	require.ErrorIs(t, err, appErrors.ErrConflict)

	// Renaming to its current name is not a conflict.
	same := "Beta"
	_, err = svc.Update(context.Background(), second.ID, dto.InstitutionUpdate{Name: &same}, moderator())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), first.ID, dto.InstitutionUpdate{Name: &name}, student())
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Update(context.Background(), first.ID, dto.InstitutionUpdate{}, moderator())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	blank := "  "
	_, err = svc.Update(context.Background(), first.ID, dto.InstitutionUpdate{Name: &blank}, moderator())
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	_, err = svc.Update(context.Background(), 404, dto.InstitutionUpdate{Name: &name}, moderator())
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestInstitutionServiceDelete(t *testing.T) {
	repo := newInstitutionRepoStub()
	svc := NewInstitutionService(repo, nil, nil)

	created, err := svc.Create(context.Background(), dto.CreateInstitutionRequest{Name: "Alfa"}, moderator())
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), created.ID, student()), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), created.ID, moderator()))
	require.ErrorIs(t, svc.Delete(context.Background(), created.ID, moderator()), appErrors.ErrNotFound)
}

func TestCatalogApplierInstitution(t *testing.T) {
	repo := newInstitutionRepoStub()
	svc := NewInstitutionService(repo, nil, nil)
	created, err := svc.Create(context.Background(), dto.CreateInstitutionRequest{Name: "Alfa"}, moderator())
	require.NoError(t, err)

	appliers := NewCatalogAppliers(svc, NewCourseService(nil, nil, nil, nil), NewProfessorService(nil, nil, nil, nil), NewSubjectService(nil, nil, nil, nil))
	applier := appliers[models.TargetInstitution]
	require.NotNil(t, applier)

	err = applier.Apply(context.Background(), nil, created.ID, map[string]json.RawMessage{
		"name": json.RawMessage(`"Beta"`),
	})
	require.NoError(t, err)
	stored, err := repo.FindByID(context.Background(), nil, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Beta", stored.Name)

	err = applier.Apply(context.Background(), nil, created.ID, map[string]json.RawMessage{
		"acronym": json.RawMessage(`"UB"`),
	})
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	err = applier.Apply(context.Background(), nil, created.ID, map[string]json.RawMessage{
		"name": json.RawMessage(`5`),
	})
	require.ErrorIs(t, err, appErrors.ErrUnprocessable)

	err = applier.Apply(context.Background(), nil, 404, map[string]json.RawMessage{
		"name": json.RawMessage(`"Gama"`),
	})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
