package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tutor/internal/domain"
)

// Event types emitted by the turn router.
const (
	TypeConceptEntered    = "concept.entered"
	TypeQuestCompleted    = "quest.completed"
	TypeRevisionSuggested = "revision.suggested"
)

// LearningEvent records one observable change in a learner's session.
type LearningEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	UserID    uuid.UUID        `json:"user_id"`
	TurnID    uuid.UUID        `json:"turn_id"`
	ConceptID domain.ConceptID `json:"concept_id"`

	// Payload contains type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// OccurredAt is the turn time the event belongs to
	OccurredAt time.Time `json:"occurred_at"`
}

// QuestCompletedPayload is the payload of quest.completed events.
type QuestCompletedPayload struct {
	MasteryLevel float64            `json:"mastery_level"`
	ReviewCount  int                `json:"review_count"`
	Outcome      domain.TurnOutcome `json:"outcome"`
}

// RevisionSuggestedPayload is the payload of revision.suggested events.
type RevisionSuggestedPayload struct {
	Candidates []domain.RevisionCandidate `json:"candidates"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *LearningEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewLearningEvent creates an event of eventType. A nil payload is omitted.
func NewLearningEvent(
	eventType string,
	userID, turnID uuid.UUID,
	conceptID domain.ConceptID,
	payload any,
	at time.Time,
) (*LearningEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &LearningEvent{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		TurnID:     turnID,
		ConceptID:  conceptID,
		Payload:    raw,
		OccurredAt: at.UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *LearningEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *LearningEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *LearningEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the router to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *LearningEvent) error
}
