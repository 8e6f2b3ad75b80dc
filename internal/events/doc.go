// Package events provides learning events and an in-process emitter.
//
// The turn router publishes an event after each state commit so that other
// components (audit logging, analytics) can react without the router knowing
// about them. Event types:
//   - concept.entered: a session started teaching a concept
//   - quest.completed: a completion was committed to the mastery store
//   - revision.suggested: prerequisite revisions were surfaced to the learner
package events
