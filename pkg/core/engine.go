package core

import (
	"context"

	"github.com/gridwright/evosize/pkg/errors"
	"github.com/gridwright/evosize/pkg/metrics"
)

// SearchEngine is the interface every optimization engine implements: size
// the given model by searching the attribute space spanned by variations.
type SearchEngine interface {
	// Run executes the search and returns the result set together with any
	// run-level error. The result is well defined even when err is non-nil:
	// it carries whatever statistics history the run collected before
	// failing.
	Run(ctx context.Context, model Model, variations []AttributeVariation) (*Result, error)
}

// TerminationReason records how a run ended.
type TerminationReason string

const (
	// TerminationCompleted means the configured generation count ran out.
	TerminationCompleted TerminationReason = "completed"
	// TerminationExhausted means the operators could not produce new unseen
	// genotypes within the retry budget, so the run stopped early with fewer
	// generations than requested. This is a normal ending, not an error.
	TerminationExhausted TerminationReason = "exhausted"
	// TerminationAborted means the run ended on an error such as generation
	// starvation or cancellation.
	TerminationAborted TerminationReason = "aborted"
)

// Result is the stable artifact a search run produces: the selected
// individuals of the last fully evaluated population, best first, and the
// per-generation statistics history. For the Pareto engine the individuals
// are the valid front-0 set; for the weighted engine they are the scalar
// ranked survivors.
type Result struct {
	Individuals []*Individual
	Stats       []metrics.GenerationStats
	Generations int
	Reason      TerminationReason
}

// EngineFactory is a function type for creating SearchEngine instances.
type EngineFactory func() (SearchEngine, error)

// EngineRegistry maintains a registry of available SearchEngine
// implementations, keyed by name.
type EngineRegistry struct {
	factories map[string]EngineFactory
}

// NewEngineRegistry creates a new EngineRegistry.
func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{
		factories: make(map[string]EngineFactory),
	}
}

// Register adds a new engine factory to the registry.
func (r *EngineRegistry) Register(name string, factory EngineFactory) {
	r.factories[name] = factory
}

// Create instantiates a new engine by name.
func (r *EngineRegistry) Create(name string) (SearchEngine, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "unknown search engine"),
			errors.Fields{"engine": name})
	}
	return factory()
}

// ProgressReporter receives coarse progress callbacks from a running engine,
// for wiring into CLIs and dashboards.
type ProgressReporter interface {
	Report(stage string, processed, total int)
}
