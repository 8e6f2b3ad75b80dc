// Package gemini implements the generation collaborators on top of Google's
// Gemini API.
//
// This package is an infrastructure adapter: it translates the engine's
// requests (domain.ContentRequest, generated text, domain.TurnContext) into
// prompts, calls the model with a JSON response MIME type, and maps the reply
// back into domain values without leaking API types to callers.
//
// Key components:
//
// 1. Client:
//   - Implements generation.ContentGenerator, generation.NoteExtractor and
//     generation.Profiler
//   - Shares one rate limiter and retry policy across all three roles
//
// 2. Prompt Management:
//   - Prompt templates are embedded at build time (prompts/*.tmpl)
//   - Each role renders its own template with text/template
//
// 3. Error Handling:
//   - Retries transient failures with exponential backoff and jitter
//   - Safety blocks and malformed replies are permanent and returned at once
//   - Errors wrap the sentinels in the generation package
package gemini
