// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the engine.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownConcept is returned when a concept id is not registered in the
	// concept graph. It indicates graph misconfiguration or bad resolver output
	// and is fatal to the turn that hit it.
	ErrUnknownConcept = errors.New("unknown concept")

	// ErrCyclicGraph is returned at load time when a concept is, directly or
	// transitively, its own prerequisite.
	ErrCyclicGraph = errors.New("concept graph contains a cycle")

	// ErrUnresolvedConcept is returned when free text cannot be mapped to any
	// registered concept.
	ErrUnresolvedConcept = errors.New("message does not resolve to a concept")

	// ErrCollaboratorTimeout is returned when an external dispatch exceeds its
	// turn-level budget.
	ErrCollaboratorTimeout = errors.New("collaborator timed out")

	// ErrInvalidMastery is returned when a mastery level is not a finite number.
	ErrInvalidMastery = errors.New("mastery level must be a finite number")
)
