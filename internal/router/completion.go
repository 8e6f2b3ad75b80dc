package router

import (
	"strings"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// trigger is what caused a completion to be detected.
type trigger string

const (
	triggerNone       trigger = ""
	triggerPhrase     trigger = "phrase"
	triggerTopicShift trigger = "topic-shift"
)

func (t trigger) outcome() domain.TurnOutcome {
	switch t {
	case triggerPhrase:
		return domain.TurnCompleted
	case triggerTopicShift:
		return domain.TurnTopicShift
	default:
		return domain.TurnContinuing
	}
}

// completionDetector decides whether a message ends the active quest.
type completionDetector struct {
	phrases  []string
	minTurns int
}

func newCompletionDetector(phrases []string, minTurns int) completionDetector {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return completionDetector{phrases: lowered, minTurns: minTurns}
}

// detect checks, in order, for an explicit completion phrase and then for a
// topic shift. The topic-shift check only runs once at least minTurns turns
// in the window were about the active concept, and fires when the message
// resolves to a concept other than both the active one and the previous
// turn's topic.
func (d completionDetector) detect(turn domain.TurnContext, resolved domain.ConceptID) trigger {
	msg := strings.ToLower(turn.Message)
	for _, p := range d.phrases {
		if strings.Contains(msg, p) {
			return triggerPhrase
		}
	}

	active := turn.ActiveConcept
	if resolved.IsZero() || resolved == active {
		return triggerNone
	}
	if turn.TurnsOn(active) < d.minTurns {
		return triggerNone
	}
	if prev, ok := turn.PreviousTopic(); ok && prev == resolved {
		return triggerNone
	}
	return triggerTopicShift
}
