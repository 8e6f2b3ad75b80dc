// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional YAML file. It provides type-safe
// access to the policy constants of the learning engine (retention thresholds,
// revision caps, completion phrases, dispatch timeouts) while keeping
// configuration details separate from business logic.
package config
