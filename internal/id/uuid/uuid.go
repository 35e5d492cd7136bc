// Package uuid issues run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator issues time-ordered (v7) run IDs, so IDs sort by start time.
type Generator struct{}

// New returns a Generator.
func New() Generator {
	return Generator{}
}

// NewRunID implements jobs.IDGenerator.
func (Generator) NewRunID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate run id: %w", err)
	}
	return id, nil
}
