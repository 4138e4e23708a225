package generation

import (
	"context"
	"encoding/json"

	"github.com/fableforge/fable-api/internal/domain"
)

// Generator produces novel content for one task kind from the caller's
// parameters. Implementations wrap a specific LLM backend; the returned
// payload is opaque JSON that the orchestration layer stores verbatim as
// the task result.
type Generator interface {
	Generate(ctx context.Context, kind domain.TaskKind, parameters map[string]any) (json.RawMessage, error)
}
