package generation

import (
	"context"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// ContentGenerator produces the tutoring text for a turn.
// Its failure fails the turn.
type ContentGenerator interface {
	// Generate returns explanatory content for req.Concept, folding in any
	// revision candidates the scheduler surfaced.
	Generate(ctx context.Context, req domain.ContentRequest) (*domain.Content, error)
}

// NoteExtractor turns generated text into structured note blocks.
// The engine passes the blocks through without validating them.
type NoteExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.NoteBlock, error)
}

// Profiler estimates how well the learner is doing from the current turn.
type Profiler interface {
	// Profile reads the turn context and returns a signal. A signal with a nil
	// MasteryEstimate is valid and means "no opinion".
	Profile(ctx context.Context, turn domain.TurnContext) (*domain.ProfileSignal, error)
}
