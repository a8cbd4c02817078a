package engine

import (
	"context"
	"time"
)

// Engine abstracts a local generation backend (Ollama or any compatible
// server). Handlers and the model selector use this interface instead of
// depending on a concrete client.
type Engine interface {
	// Generate sends a single non-streaming completion request and returns
	// the drafted text with surrounding whitespace trimmed.
	Generate(ctx context.Context, model, prompt string, timeout time.Duration) (string, error)

	// ListModels returns the names of all locally installed models.
	ListModels(ctx context.Context) ([]string, error)

	// IsRunning reports whether the generation backend is reachable.
	IsRunning(ctx context.Context) bool
}
