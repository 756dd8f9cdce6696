package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRunID returns a random identifier for an optimisation run
func NewRunID() string {
	return uuid.NewString()
}

// ParseRunID normalises a run identifier, rejecting anything that is not a UUID
func ParseRunID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return id.String(), nil
}
