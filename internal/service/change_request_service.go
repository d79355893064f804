package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/models"
	"github.com/avalia-edu/avalia-api/internal/repository"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type changeRequestStore interface {
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	GetByID(ctx context.Context, id int64) (*models.ChangeRequest, error)
	Create(ctx context.Context, request *models.ChangeRequest) error
	Resolve(ctx context.Context, params repository.ResolveParams, apply func(tx *sqlx.Tx) error) error
}

// ChangeApplier applies an approved change set to one target entity inside
// the resolution transaction.
type ChangeApplier interface {
	Apply(ctx context.Context, tx *sqlx.Tx, targetID int64, changes map[string]json.RawMessage) error
}

// ChangeApplierFunc allows using plain functions as appliers.
type ChangeApplierFunc func(ctx context.Context, tx *sqlx.Tx, targetID int64, changes map[string]json.RawMessage) error

// Apply implements ChangeApplier.
func (f ChangeApplierFunc) Apply(ctx context.Context, tx *sqlx.Tx, targetID int64, changes map[string]json.RawMessage) error {
	return f(ctx, tx, targetID, changes)
}

// ChangeRequestService manages staged catalog edits: creation with payload
// normalization and one-shot moderator resolution.
type ChangeRequestService struct {
	repo     changeRequestStore
	appliers map[models.TargetType]ChangeApplier
	logger   *zap.Logger
}

// NewChangeRequestService constructs the service with the given applier map.
func NewChangeRequestService(repo changeRequestStore, appliers map[models.TargetType]ChangeApplier, logger *zap.Logger) *ChangeRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if appliers == nil {
		appliers = make(map[models.TargetType]ChangeApplier)
	}
	return &ChangeRequestService{repo: repo, appliers: appliers, logger: logger}
}

// Create stages a change request after normalizing its payload.
func (s *ChangeRequestService) Create(ctx context.Context, req dto.CreateChangeRequestRequest, author *models.User) (*models.ChangeRequest, error) {
	if author == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !req.TargetType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "invalid target_type")
	}
	normalized, err := NormalizePayload(req.Payload)
	if err != nil {
		return nil, err
	}

	request := &models.ChangeRequest{
		TargetType: req.TargetType,
		Payload:    normalized.Raw,
		Status:     models.ChangeRequestPending,
		CreatedBy:  author.ID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.FromError(err)
	}
	return request, nil
}

// List returns change requests. Moderators see everything; other users see
// only their own submissions.
func (s *ChangeRequestService) List(ctx context.Context, filter models.ChangeRequestFilter, actor *models.User) ([]models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsModerator() {
		filter.CreatedBy = &actor.ID
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change requests")
	}
	return requests, nil
}

// Get returns one change request for its creator or a moderator.
func (s *ChangeRequestService) Get(ctx context.Context, id int64, actor *models.User) (*models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.CreatedBy != actor.ID && !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// Resolve approves or rejects a pending change request. Approval applies the
// staged changes to the live target entity in the same transaction as the
// status transition; any applier failure leaves the request PENDING.
func (s *ChangeRequestService) Resolve(ctx context.Context, id int64, approve bool, actor *models.User) (*models.ChangeRequest, error) {
	if !actor.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	request, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ChangeRequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "change request already resolved")
	}

	status := models.ChangeRequestRejected
	var apply func(tx *sqlx.Tx) error
	if approve {
		status = models.ChangeRequestApproved
		applier := s.appliers[request.TargetType]
		if applier == nil {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, fmt.Sprintf("unsupported target type: %s", request.TargetType))
		}
		normalized, err := NormalizePayload(json.RawMessage(request.Payload))
		if err != nil {
			return nil, err
		}
		apply = func(tx *sqlx.Tx) error {
			return applier.Apply(ctx, tx, normalized.TargetID, normalized.Changes)
		}
	}

	now := time.Now().UTC()
	params := repository.ResolveParams{
		ID:         request.ID,
		Status:     status,
		ResolvedBy: actor.ID,
		ResolvedAt: now,
	}
	if err := s.repo.Resolve(ctx, params, apply); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "change request already resolved")
		}
		var typed *appErrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve change request")
	}

	request.Status = status
	request.ResolvedBy = &actor.ID
	request.ResolvedAt = &now
	return request, nil
}

func (s *ChangeRequestService) findRequest(ctx context.Context, id int64) (*models.ChangeRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	return request, nil
}

// NormalizedPayload is the canonical decomposition of a change request
// payload: a positive target id, the field changes, and the re-encoded
// document that gets stored.
type NormalizedPayload struct {
	TargetID int64
	Changes  map[string]json.RawMessage
	Raw      types.JSONText
}

// NormalizePayload validates and canonicalizes a change request payload.
// The target id is read from "target_id" with "id" as fallback and must
// coerce to a positive integer. Changes come from a nested "changes" or
// "data" mapping when present, otherwise from every top-level key except
// the id keys and "metadata". The stored document always carries target_id
// plus the change mapping under its original key.
func NormalizePayload(raw json.RawMessage) (*NormalizedPayload, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "payload must be a mapping")
	}

	targetID, err := coerceTargetID(payload)
	if err != nil {
		return nil, err
	}

	changesKey := "changes"
	var changes map[string]json.RawMessage
	switch {
	case hasKey(payload, "changes"):
		if err := json.Unmarshal(payload["changes"], &changes); err != nil {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "changes must be a mapping")
		}
	case hasKey(payload, "data"):
		changesKey = "data"
		if err := json.Unmarshal(payload["data"], &changes); err != nil {
			return nil, appErrors.Clone(appErrors.ErrUnprocessable, "data must be a mapping")
		}
	default:
		changes = make(map[string]json.RawMessage)
		for key, value := range payload {
			switch key {
			case "target_id", "id", "metadata":
				continue
			}
			changes[key] = value
		}
	}
	if len(changes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "change set must not be empty")
	}

	normalized := make(map[string]json.RawMessage, len(payload)+1)
	for key, value := range payload {
		if key == "id" || key == "target_id" {
			continue
		}
		normalized[key] = value
	}
	normalized["target_id"] = json.RawMessage(strconv.FormatInt(targetID, 10))
	if encoded, err := json.Marshal(changes); err == nil {
		normalized[changesKey] = encoded
	}

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode payload")
	}
	return &NormalizedPayload{TargetID: targetID, Changes: changes, Raw: types.JSONText(encoded)}, nil
}

func hasKey(payload map[string]json.RawMessage, key string) bool {
	_, ok := payload[key]
	return ok
}

func coerceTargetID(payload map[string]json.RawMessage) (int64, error) {
	var raw json.RawMessage
	if value, ok := payload["target_id"]; ok {
		raw = value
	} else if value, ok := payload["id"]; ok {
		raw = value
	} else {
		return 0, appErrors.Clone(appErrors.ErrUnprocessable, "payload must carry a target id")
	}

	var number json.Number
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()
	if err := decoder.Decode(&number); err == nil {
		if id, err := number.Int64(); err == nil && id > 0 {
			return id, nil
		}
		return 0, appErrors.Clone(appErrors.ErrUnprocessable, "target id must be a positive integer")
	}

	// Numeric strings are accepted too.
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}
	return 0, appErrors.Clone(appErrors.ErrUnprocessable, "target id must be a positive integer")
}
