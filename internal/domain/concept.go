package domain

import (
	"errors"
	"strings"
)

// ErrEmptyConceptID is returned when a concept id is blank.
var ErrEmptyConceptID = errors.New("concept ID cannot be empty")

// ConceptID is the opaque, stable identifier of a learnable concept.
// It is never reused with a different meaning.
type ConceptID string

// String returns the raw identifier.
func (c ConceptID) String() string {
	return string(c)
}

// IsZero reports whether the id is unset.
func (c ConceptID) IsZero() bool {
	return c == ""
}

// Validate checks that the id is non-blank and has no surrounding whitespace.
func (c ConceptID) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return ErrEmptyConceptID
	}
	if strings.TrimSpace(string(c)) != string(c) {
		return ErrValidation
	}
	return nil
}
