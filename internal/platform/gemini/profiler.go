package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/generation"
)

// Profile implements generation.Profiler. Estimates outside [0, 1] are clamped.
func (c *Client) Profile(ctx context.Context, turn domain.TurnContext) (*domain.ProfileSignal, error) {
	if strings.TrimSpace(turn.Message) == "" {
		return nil, fmt.Errorf("%w: message", generation.ErrEmptyInput)
	}

	prompt, err := render(c.prompts.profile, turn)
	if err != nil {
		return nil, err
	}

	var reply ProfileSchema
	if err := c.generateJSON(ctx, "profile", prompt, &reply); err != nil {
		return nil, err
	}

	signal := &domain.ProfileSignal{
		Concept:    turn.ActiveConcept,
		Confusions: reply.Confusions,
		Summary:    reply.Summary,
	}
	if reply.MasteryEstimate != nil {
		v := domain.ClampMastery(*reply.MasteryEstimate)
		signal.MasteryEstimate = &v
	}
	return signal, nil
}
