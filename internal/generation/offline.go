package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// Offline is a deterministic, in-process implementation of every collaborator.
// It lets the engine run end to end without a language model.
type Offline struct{}

// Generate implements ContentGenerator.
func (Offline) Generate(ctx context.Context, req domain.ContentRequest) (*domain.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Concept.IsZero() {
		return nil, fmt.Errorf("%w: concept", ErrEmptyInput)
	}

	title := req.ConceptTitle
	if title == "" {
		title = req.Concept.String()
	}

	var b strings.Builder
	if !req.Completed.IsZero() {
		fmt.Fprintf(&b, "Nice work finishing %s.\n", req.Completed)
	}
	if len(req.Revisions) > 0 {
		b.WriteString("Before we start, a quick refresher on:")
		for _, r := range req.Revisions {
			fmt.Fprintf(&b, " %s", r.ConceptID)
		}
		b.WriteString(".\n")
	}
	fmt.Fprintf(&b, "Let's work on %s.", title)

	return &domain.Content{
		Text:     b.String(),
		Metadata: map[string]string{"generator": "offline"},
	}, nil
}

// Extract implements NoteExtractor by turning each non-empty line into a note.
func (Offline) Extract(ctx context.Context, text string) ([]domain.NoteBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	notes := make([]domain.NoteBlock, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		notes = append(notes, domain.NoteBlock{Kind: "summary", Body: line})
	}
	return notes, nil
}

// Profile implements Profiler. It never offers a mastery estimate.
func (Offline) Profile(ctx context.Context, turn domain.TurnContext) (*domain.ProfileSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.ProfileSignal{Concept: turn.ActiveConcept}, nil
}
