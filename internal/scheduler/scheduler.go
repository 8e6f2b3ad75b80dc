package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tutor/internal/domain"
)

// DefaultMaxRevisions caps how many prerequisites are suggested per concept.
const DefaultMaxRevisions = 3

// ConceptGraph is the read-only view of the concept catalogue the scheduler
// needs. Both *graph.Graph and *graph.Holder satisfy it.
type ConceptGraph interface {
	// Prerequisites returns the ordered direct prerequisites of id, or
	// domain.ErrUnknownConcept if id is not registered.
	Prerequisites(id domain.ConceptID) ([]domain.ConceptID, error)

	// Contains reports whether id is registered.
	Contains(id domain.ConceptID) bool
}

// Scheduler computes revision suggestions and records quest completions.
type Scheduler interface {
	// RevisionsNeededFor lists the direct prerequisites of concept that the
	// user has been taught and that are currently due for revision.
	//
	// Parameters:
	//   - ctx: Context for the operation, which can include cancellation
	//   - userID: the learner
	//   - concept: the concept about to be taught
	//   - now: evaluation time
	//
	// Returns:
	//   - candidates sorted by retention ascending, ties broken by concept ID,
	//     truncated to the configured maximum, each with reason
	//     "prerequisite-of:<concept>"; an empty slice when nothing is due
	//   - domain.ErrUnknownConcept if concept is not in the graph
	//   - store errors unchanged (wrapped with %w)
	//
	// Prerequisites the user was never taught are skipped. They are new
	// material, not revision.
	RevisionsNeededFor(
		ctx context.Context,
		userID uuid.UUID,
		concept domain.ConceptID,
		now time.Time,
	) ([]domain.RevisionCandidate, error)

	// CompleteQuest records that the user finished learning concept at now
	// with the given mastery level. The first completion creates the record;
	// later completions count as reviews.
	//
	// Returns:
	//   - the record as stored after the write
	//   - domain.ErrUnknownConcept if concept is not in the graph
	//   - store errors unchanged (wrapped with %w)
	//
	// The call is not idempotent and is never retried internally; callers
	// must invoke it exactly once per completion.
	CompleteQuest(
		ctx context.Context,
		userID uuid.UUID,
		concept domain.ConceptID,
		mastery float64,
		now time.Time,
	) (*domain.MasteryRecord, error)

	// MasteryOf returns the stored record for the pair, or nil if the user has
	// never been taught the concept.
	MasteryOf(ctx context.Context, userID uuid.UUID, concept domain.ConceptID) (*domain.MasteryRecord, error)

	// DueConcepts lists every concept the user has been taught that is due
	// now, with reason "scheduled", ordered like RevisionsNeededFor. A
	// non-positive limit returns all of them. Records for concepts that are no
	// longer in the graph are ignored.
	DueConcepts(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]domain.RevisionCandidate, error)
}

// Config holds scheduler policy.
type Config struct {
	MaxRevisions int
}

// ServiceError wraps scheduler failures with the operation that produced them.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
