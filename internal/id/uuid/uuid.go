// Package uuid provides ID generation for events and requests.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUID v7 strings, so IDs sort by creation time.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// EnsureEventID returns current when set, otherwise a fresh ID.
func (g Generator) EnsureEventID(current string) (string, error) {
	if current != "" {
		return current, nil
	}
	return g.NewID()
}
