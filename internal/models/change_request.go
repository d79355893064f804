package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ChangeRequestStatus captures workflow states for staged catalog edits.
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "PENDING"
	ChangeRequestApproved ChangeRequestStatus = "APPROVED"
	ChangeRequestRejected ChangeRequestStatus = "REJECTED"
)

// ChangeRequest stages a field-level edit to one catalog entity. The payload
// is stored normalized: it always carries a positive target_id plus the
// change mapping under "changes" (or "data" when submitted in that shape).
type ChangeRequest struct {
	ID         int64               `db:"id" json:"id"`
	TargetType TargetType          `db:"target_type" json:"target_type"`
	Payload    types.JSONText      `db:"payload" json:"payload"`
	Status     ChangeRequestStatus `db:"status" json:"status"`
	CreatedBy  int64               `db:"created_by" json:"created_by"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	ResolvedBy *int64              `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time          `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ChangeRequestFilter constrains listing queries.
type ChangeRequestFilter struct {
	Status     *ChangeRequestStatus
	TargetType *TargetType
	CreatedBy  *int64
	Skip       int
	Limit      int
}
