package domain

import (
	"fmt"
	"time"
)

// Urgency classifies how pressing a revision is.
type Urgency string

// Possible urgency values
const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// ReasonScheduled tags candidates that surfaced from the regular review queue
// rather than from a prerequisite check.
const ReasonScheduled = "scheduled"

// ReasonPrerequisiteOf builds the reason tag for a prerequisite that is at risk
// while concept is being taught.
func ReasonPrerequisiteOf(concept ConceptID) string {
	return fmt.Sprintf("prerequisite-of:%s", concept)
}

// RevisionCandidate is a concept flagged as at risk of being forgotten.
type RevisionCandidate struct {
	ConceptID ConceptID `json:"concept_id"`
	Retention float64   `json:"retention"`
	Urgency   Urgency   `json:"urgency"`
	Reason    string    `json:"reason"`
	DueAt     time.Time `json:"due_at"`
}
