package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/generation"
)

// Extract implements generation.NoteExtractor. Notes with an empty body are
// dropped; an empty list is a valid reply.
func (c *Client) Extract(ctx context.Context, text string) ([]domain.NoteBlock, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text", generation.ErrEmptyInput)
	}

	prompt, err := render(c.prompts.notes, notesPromptData{Text: text})
	if err != nil {
		return nil, err
	}

	var reply NotesSchema
	if err := c.generateJSON(ctx, "notes", prompt, &reply); err != nil {
		return nil, err
	}

	notes := make([]domain.NoteBlock, 0, len(reply.Notes))
	for _, n := range reply.Notes {
		if strings.TrimSpace(n.Body) == "" {
			continue
		}
		notes = append(notes, domain.NoteBlock{Kind: n.Kind, Title: n.Title, Body: n.Body})
	}
	return notes, nil
}
