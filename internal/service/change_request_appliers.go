package service

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

// NewCatalogAppliers wires the four catalog services into the change request
// dispatch map. Each applier re-validates the change mapping against the
// entity's own update rules before persisting inside the caller's transaction.
func NewCatalogAppliers(
	institutions *InstitutionService,
	courses *CourseService,
	professors *ProfessorService,
	subjects *SubjectService,
) map[models.TargetType]ChangeApplier {
	return map[models.TargetType]ChangeApplier{
		models.TargetInstitution: ChangeApplierFunc(func(ctx context.Context, tx *sqlx.Tx, targetID int64, changes map[string]json.RawMessage) error {
			var update dto.InstitutionUpdate
			if err := decodeChanges(changes, &update); err != nil {
				return err
			}
			_, err := institutions.ApplyUpdate(ctx, tx, targetID, update)
			return err
		}),
		models.TargetCourse: ChangeApplierFunc(func(ctx context.Context, tx *sqlx.Tx, targetID int64, changes map[string]json.RawMessage) error {
			var update dto.CourseUpdate
			if err := decodeChanges(changes, &update); err != nil {
				return err
			}
			_, err := courses.ApplyUpdate(ctx, tx, targetID, update)
			return err
		}),
		models.TargetProfessor: ChangeApplierFunc(func(ctx context.Context, tx *sqlx.Tx, targetID int64, changes map[string]json.RawMessage) error {
			var update dto.ProfessorUpdate
			if err := decodeChanges(changes, &update); err != nil {
				return err
			}
			_, err := professors.ApplyUpdate(ctx, tx, targetID, update)
			return err
		}),
		models.TargetSubject: ChangeApplierFunc(func(ctx context.Context, tx *sqlx.Tx, targetID int64, changes map[string]json.RawMessage) error {
			var update dto.SubjectUpdate
			if err := decodeChanges(changes, &update); err != nil {
				return err
			}
			_, err := subjects.ApplyUpdate(ctx, tx, targetID, update)
			return err
		}),
	}
}

// decodeChanges strictly decodes a change mapping into an entity update
// schema. Unknown fields or mismatched types fail as unprocessable.
func decodeChanges(changes map[string]json.RawMessage, dest interface{}) error {
	encoded, err := json.Marshal(changes)
	if err != nil {
		return appErrors.Clone(appErrors.ErrUnprocessable, "invalid change set")
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return appErrors.Clone(appErrors.ErrUnprocessable, "change set does not match the target schema")
	}
	return nil
}
