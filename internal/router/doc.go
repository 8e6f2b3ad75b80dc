// Package router implements the turn router: the single public entry point of
// the learning-state engine.
//
// Each user message is one turn. The router serializes turns per user, runs
// an explicit state machine over the user's session
//
//	Idle --resolvable message--> Teaching(c)
//	Teaching(c) --no completion signal--> Teaching(c)
//	Teaching(c) --completion signal--> AwaitingCompletionSignal(c)
//	AwaitingCompletionSignal(c) --commit--> Idle | Teaching(next)
//
// and then dispatches the tutoring-content, note-extraction and profiling
// collaborators for the turn. Content generation is essential and its failure
// fails the turn. Notes, profiling and revision lookup are best-effort and only
// degrade it.
//
// A completion is committed through the scheduler exactly once. The session is
// saved right after the commit, so a later failure or cancellation in the same
// turn cannot undo it.
package router
