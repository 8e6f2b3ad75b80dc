// Package domain contains the core entities and value objects of the
// learning-state engine: concepts, per-user mastery records, revision
// candidates and the transient turn context. It is independent of storage,
// transport and content generation.
package domain
