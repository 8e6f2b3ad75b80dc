package domain

import (
	"github.com/google/uuid"
)

// TurnOutcome is how a single user turn ended.
type TurnOutcome string

// Possible turn outcomes
const (
	TurnContinuing TurnOutcome = "continuing"
	TurnCompleted  TurnOutcome = "completed"
	TurnTopicShift TurnOutcome = "topic-shift"
)

// TurnContext describes one user message while it is being routed. It is
// created at turn start and discarded at turn end; only the mastery updates it
// causes persist.
type TurnContext struct {
	TurnID        uuid.UUID   `json:"turn_id"`
	UserID        uuid.UUID   `json:"user_id"`
	Message       string      `json:"message"`
	ActiveConcept ConceptID   `json:"active_concept,omitempty"`
	RecentTopics  []ConceptID `json:"recent_topics,omitempty"` // Oldest first
	Outcome       TurnOutcome `json:"outcome"`
}

// PreviousTopic returns the topic of the turn just before this one, if any.
func (t *TurnContext) PreviousTopic() (ConceptID, bool) {
	if len(t.RecentTopics) == 0 {
		return "", false
	}
	return t.RecentTopics[len(t.RecentTopics)-1], true
}

// TurnsOn counts how many turns in the window were about concept.
func (t *TurnContext) TurnsOn(concept ConceptID) int {
	n := 0
	for _, topic := range t.RecentTopics {
		if topic == concept {
			n++
		}
	}
	return n
}

// Completed reports whether the outcome ended the active quest.
func (o TurnOutcome) Completed() bool {
	return o == TurnCompleted || o == TurnTopicShift
}
