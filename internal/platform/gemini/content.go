package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/generation"
)

// Generate implements generation.ContentGenerator.
func (c *Client) Generate(ctx context.Context, req domain.ContentRequest) (*domain.Content, error) {
	if req.Concept.IsZero() {
		return nil, fmt.Errorf("%w: concept", generation.ErrEmptyInput)
	}

	prompt, err := render(c.prompts.content, contentPromptData{
		Concept:   req.Concept,
		Title:     req.ConceptTitle,
		Message:   req.Message,
		Completed: req.Completed,
		Revisions: req.Revisions,
	})
	if err != nil {
		return nil, err
	}

	var reply ContentSchema
	if err := c.generateJSON(ctx, "content", prompt, &reply); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply.Text) == "" {
		return nil, fmt.Errorf("%w: content text is empty", generation.ErrInvalidResponse)
	}

	c.logger.DebugContext(ctx, "generated tutoring content",
		slog.String("concept_id", req.Concept.String()),
		slog.Int("text_length", len(reply.Text)),
		slog.Int("key_points", len(reply.KeyPoints)))

	content := &domain.Content{
		Text:     reply.Text,
		Metadata: map[string]string{"model": c.model},
	}
	if len(reply.KeyPoints) > 0 {
		content.Metadata["key_points"] = strings.Join(reply.KeyPoints, "\n")
	}
	return content, nil
}
