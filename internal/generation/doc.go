// Package generation defines the boundary between the orchestration core
// and external AI/LLM services. The core never inspects what a generator
// produces; it only needs an opaque unit of work that can succeed with a
// result payload or fail with an error.
package generation
