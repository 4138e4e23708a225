package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrUnknownKind is returned when no prompt template exists for a task kind.
	ErrUnknownKind = errors.New("no prompt template for task kind")

	// ErrEmptyPrompt is returned when template execution produces no prompt text.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)
