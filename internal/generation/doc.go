// Package generation defines the boundary between the learning-state engine
// and the external analyzers it dispatches to on every turn.
//
// The engine never inspects how text is produced. It supplies request
// parameters to a ContentGenerator, hands the generated text to a
// NoteExtractor, and asks a Profiler for a mastery estimate of the learner.
// Implementations live in infrastructure packages (see platform/gemini);
// Offline is an in-process fallback used when no model is configured.
package generation
