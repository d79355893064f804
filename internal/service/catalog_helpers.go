package service

import (
	"strings"

	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

// normalizeName collapses internal whitespace and trims the edges.
// Blank results are rejected.
func normalizeName(name string) (string, error) {
	normalized := strings.Join(strings.Fields(name), " ")
	if normalized == "" {
		return "", appErrors.Clone(appErrors.ErrUnprocessable, "name must not be blank")
	}
	return normalized, nil
}
