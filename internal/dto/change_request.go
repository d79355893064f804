package dto

import (
	"encoding/json"

	"github.com/avalia-edu/avalia-api/internal/models"
)

// CreateChangeRequestRequest stages a catalog edit for moderator review.
// Payload is free-form JSON; it is normalized before being stored.
type CreateChangeRequestRequest struct {
	TargetType models.TargetType `json:"target_type" validate:"required"`
	Payload    json.RawMessage   `json:"payload" validate:"required"`
}

