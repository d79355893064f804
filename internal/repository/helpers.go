package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolationCode = "23505"

	defaultListLimit = 20
	maxListLimit     = 100
)

// isUniqueViolation reports whether err is a Postgres duplicate-key failure.
// The unique indexes are the authoritative backstop for races the
// transaction-scoped existence checks cannot see.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}

// clampWindow normalises skip/limit pagination parameters, capping page
// size at maxListLimit to bound response payloads.
func clampWindow(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return skip, limit
}
