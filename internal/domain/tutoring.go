package domain

import (
	"github.com/google/uuid"
)

// ContentRequest is what the router asks the content generator for on a turn.
type ContentRequest struct {
	TurnID       uuid.UUID           `json:"turn_id"`
	UserID       uuid.UUID           `json:"user_id"`
	Concept      ConceptID           `json:"concept"`
	ConceptTitle string              `json:"concept_title,omitempty"`
	Message      string              `json:"message"`
	Revisions    []RevisionCandidate `json:"revisions,omitempty"`

	// Completed is set when this turn closed out a previous concept.
	Completed ConceptID `json:"completed,omitempty"`
}

// Content is opaque tutoring output. The engine passes it through untouched.
type Content struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NoteBlock is one structured note extracted from generated content.
type NoteBlock struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ProfileSignal is the profiler's reading of a single turn.
type ProfileSignal struct {
	Concept ConceptID `json:"concept,omitempty"`

	// MasteryEstimate is nil when the profiler has no opinion.
	MasteryEstimate *float64 `json:"mastery_estimate,omitempty"`

	Confusions []string `json:"confusions,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}
