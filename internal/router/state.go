package router

import (
	"fmt"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// StateKind names a router state.
type StateKind string

// Router states
const (
	StateIdle               StateKind = "idle"
	StateTeaching           StateKind = "teaching"
	StateAwaitingCompletion StateKind = "awaiting-completion-signal"
)

// State is a router state together with the concept it refers to. Idle
// carries no concept.
type State struct {
	Kind    StateKind        `json:"kind"`
	Concept domain.ConceptID `json:"concept,omitempty"`
}

// Idle returns the state with no active concept.
func Idle() State { return State{Kind: StateIdle} }

// Teaching returns the state for concept being explained.
func Teaching(concept domain.ConceptID) State {
	return State{Kind: StateTeaching, Concept: concept}
}

// AwaitingCompletion returns the state held while a completion of concept is
// being committed.
func AwaitingCompletion(concept domain.ConceptID) State {
	return State{Kind: StateAwaitingCompletion, Concept: concept}
}

// IsIdle reports whether no concept is active. The zero State is idle.
func (s State) IsIdle() bool {
	return s.Kind == StateIdle || s.Kind == ""
}

// String renders the state as kind(concept).
func (s State) String() string {
	if s.IsIdle() {
		return string(StateIdle)
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Concept)
}
