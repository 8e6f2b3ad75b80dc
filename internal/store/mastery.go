package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tutor/internal/domain"
)

// MasteryStore defines the interface for per-user concept mastery persistence.
//
// It is the only component allowed to mutate mastery records. Every write is
// linearizable per (user, concept) pair: concurrent RecordReview calls for the
// same pair each take effect exactly once, and writes for different pairs do
// not block each other.
type MasteryStore interface {
	// Get retrieves the mastery record for the (user, concept) pair.
	// Returns (nil, nil) when the user has never been taught the concept;
	// absence is not an error.
	Get(ctx context.Context, userID uuid.UUID, conceptID domain.ConceptID) (*domain.MasteryRecord, error)

	// RecordLearned creates the first mastery record for the pair with
	// LearnedAt = LastReviewedAt = at and ReviewCount = 0.
	// The mastery level is clamped to [0, 1].
	// Returns ErrMasteryExists if a record already exists.
	RecordLearned(
		ctx context.Context,
		userID uuid.UUID,
		conceptID domain.ConceptID,
		mastery float64,
		at time.Time,
	) (*domain.MasteryRecord, error)

	// RecordReview applies a review to an existing record: ReviewCount is
	// incremented and, unless at is older than the stored LastReviewedAt, the
	// mastery level (clamped to [0, 1]) and LastReviewedAt are replaced.
	// The newest timestamp always wins and no review is lost.
	// Returns ErrMasteryNotFound if the pair has no record.
	RecordReview(
		ctx context.Context,
		userID uuid.UUID,
		conceptID domain.ConceptID,
		mastery float64,
		at time.Time,
	) (*domain.MasteryRecord, error)

	// ListByUser returns every mastery record held for the user, ordered by
	// concept ID. An unknown user yields an empty slice.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.MasteryRecord, error)
}
