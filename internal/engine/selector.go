package engine

import (
	"context"
	"strings"
	"sync"
)

// ModelCatalog lists the models installed on the local runtime. Satisfied by
// Engine; discovery failures are never distinguished from an empty catalog.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Selector resolves which installed model drafts replies. Discovery runs at
// most once per process; any failure or an empty catalog falls back silently
// to the configured default.
type Selector struct {
	catalog  ModelCatalog
	fallback string

	once  sync.Once
	model string
}

// NewSelector creates a Selector that falls back to the given default model
// identifier when discovery yields nothing usable.
func NewSelector(catalog ModelCatalog, fallback string) *Selector {
	return &Selector{catalog: catalog, fallback: fallback}
}

// Model returns the selected model identifier: the first catalog entry
// carrying a name:tag separator, or the fallback. The result is cached for
// the process lifetime.
func (s *Selector) Model(ctx context.Context) string {
	s.once.Do(func() {
		s.model = s.fallback

		models, err := s.catalog.ListModels(ctx)
		if err != nil {
			return
		}
		for _, m := range models {
			if strings.Contains(m, ":") {
				s.model = m
				return
			}
		}
	})
	return s.model
}
