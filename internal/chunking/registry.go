package chunking

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Registry maps strategy names to chunker builders.
type Registry struct {
	builders map[domain.ChunkerStrategy]driven.ChunkerFactory
}

// NewRegistry creates a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[domain.ChunkerStrategy]driven.ChunkerFactory),
	}
}

// Register adds a builder for the given strategy.
func (r *Registry) Register(strategy domain.ChunkerStrategy, builder driven.ChunkerFactory) {
	r.builders[strategy] = builder
}

// Build creates a chunker for strategy with the given settings.
func (r *Registry) Build(strategy domain.ChunkerStrategy, settings domain.ChunkSettings) (driven.Chunker, error) {
	builder, ok := r.builders[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrInvalidConfig, strategy)
	}
	return builder(settings)
}

// Has returns true if the strategy is registered.
func (r *Registry) Has(strategy domain.ChunkerStrategy) bool {
	_, ok := r.builders[strategy]
	return ok
}

// Names returns all registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// Selection is the strategy chosen at startup.
type Selection struct {
	Strategy domain.ChunkerStrategy
	Factory  driven.ChunkerFactory
}

// Select returns the preferred strategy when it is registered and passes the
// availability probe, and the window strategy otherwise.
func (r *Registry) Select(preferred domain.ChunkerStrategy) (Selection, error) {
	if builder, ok := r.builders[preferred]; ok {
		if err := probe(builder); err == nil {
			return Selection{Strategy: preferred, Factory: builder}, nil
		} else if preferred != domain.ChunkerWindow {
			logger.Warn("chunking: %s strategy unavailable, falling back to %s: %v",
				preferred, domain.ChunkerWindow, err)
		}
	} else {
		logger.Warn("chunking: %s strategy not registered, falling back to %s", preferred, domain.ChunkerWindow)
	}

	builder, ok := r.builders[domain.ChunkerWindow]
	if !ok {
		return Selection{}, fmt.Errorf("%w: no usable chunking strategy", domain.ErrInvalidConfig)
	}
	if err := probe(builder); err != nil {
		return Selection{}, fmt.Errorf("%w: window chunker failed probe: %w", domain.ErrInvalidConfig, err)
	}
	return Selection{Strategy: domain.ChunkerWindow, Factory: builder}, nil
}

// probeText exercises every separator level.
const probeText = "Availability probe.\n\nThe second paragraph has two sentences. " +
	"It also has a line break\nand a long unbroken token: abcdefghijklmnopqrstuvwxyz0123456789."

var probeSettings = domain.ChunkSettings{Size: 32, Overlap: 4}

// probe builds a chunker and checks its output on a known text.
func probe(builder driven.ChunkerFactory) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("probe panicked: %v", rec)
		}
	}()

	chunker, err := builder(probeSettings)
	if err != nil {
		return err
	}
	chunks, err := chunker.Split(context.Background(), probeText)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("probe produced no chunks")
	}
	for i, c := range chunks {
		if c.Text == "" {
			return fmt.Errorf("probe chunk %d is empty", i)
		}
		if c.Metadata.Size > probeSettings.Size {
			return fmt.Errorf("probe chunk %d has %d characters, limit %d", i, c.Metadata.Size, probeSettings.Size)
		}
	}
	return nil
}
