package gemini

import "github.com/phrazzld/scry-tutor/internal/domain"

// contentPromptData is rendered into prompts/content.tmpl
type contentPromptData struct {
	Concept   domain.ConceptID
	Title     string
	Message   string
	Completed domain.ConceptID
	Revisions []domain.RevisionCandidate
}

// notesPromptData is rendered into prompts/notes.tmpl
type notesPromptData struct {
	Text string
}

// ContentSchema is the expected JSON reply for tutoring content
type ContentSchema struct {
	// Text is the explanation shown to the learner
	Text string `json:"text"`

	// KeyPoints are optional one-line takeaways
	KeyPoints []string `json:"key_points,omitempty"`
}

// NotesSchema is the expected JSON reply for note extraction
type NotesSchema struct {
	Notes []NoteSchema `json:"notes"`
}

// NoteSchema is a single extracted note
type NoteSchema struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ProfileSchema is the expected JSON reply for learner profiling
type ProfileSchema struct {
	// MasteryEstimate is null when the model has no evidence
	MasteryEstimate *float64 `json:"mastery_estimate"`
	Confusions      []string `json:"confusions,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}
