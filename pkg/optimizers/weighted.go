package optimizers

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/gridwright/evosize/pkg/core"
	"github.com/gridwright/evosize/pkg/errors"
	"github.com/gridwright/evosize/pkg/logging"
	"github.com/gridwright/evosize/pkg/metrics"
)

// WeightedConfig contains configuration options for the weighted-sum engine.
type WeightedConfig struct {
	PopulationSize int     `json:"population_size"` // Default: 20
	Generations    int     `json:"generations"`     // Default: 10
	ElitismRate    float64 `json:"elitism_rate"`    // Default: 0.25
	CrossoverRate  float64 `json:"crossover_rate"`  // Default: 0.8
	MutationRate   float64 `json:"mutation_rate"`   // Default: 0.1
	RetryFactor    int     `json:"retry_factor"`    // Default: 1000
	Seed           int64   `json:"seed"`            // Default: current time
}

func (c WeightedConfig) validate() error {
	if c.PopulationSize < 2 {
		return errors.New(errors.InvalidInput, "population size must be at least 2")
	}
	if c.Generations < 1 {
		return errors.New(errors.InvalidInput, "generation count must be positive")
	}
	if c.ElitismRate <= 0 || c.ElitismRate > 1 {
		return errors.New(errors.InvalidInput, "elitism rate must be in (0, 1]")
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return errors.New(errors.InvalidInput, "crossover rate must be in [0, 1]")
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return errors.New(errors.InvalidInput, "mutation rate must be in [0, 1]")
	}
	if c.RetryFactor < 1 {
		return errors.New(errors.InvalidInput, "retry factor must be positive")
	}
	return nil
}

// Weighted is the scalar single-objective engine: it collapses each signed
// fitness vector into its weighted sum and runs a plain elitist GA on that
// scalar. Simpler and greedier than NSGA-II; it finds one good trade-off
// instead of a front, which suits searches with a settled weighting.
type Weighted struct {
	config    WeightedConfig
	evaluator *Evaluator
	elites    int
	weights   []float64
	rng       *rand.Rand
	logger    *logging.Logger
	progress  core.ProgressReporter
}

var _ core.SearchEngine = (*Weighted)(nil)

// WeightedOption is a functional option for configuring the weighted engine.
type WeightedOption func(*Weighted)

// WithWeightedConfig replaces the engine configuration wholesale.
func WithWeightedConfig(config WeightedConfig) WeightedOption {
	return func(o *Weighted) {
		o.config = config
	}
}

// WithWeightedSeed pins the random source for reproducible runs.
func WithWeightedSeed(seed int64) WeightedOption {
	return func(o *Weighted) {
		o.config.Seed = seed
	}
}

// NewWeighted creates a weighted-sum engine over the given evaluator.
func NewWeighted(evaluator *Evaluator, opts ...WeightedOption) (*Weighted, error) {
	if evaluator == nil {
		return nil, errors.New(errors.InvalidInput, "an evaluator is required")
	}

	o := &Weighted{
		config: WeightedConfig{
			PopulationSize: 20,
			Generations:    10,
			ElitismRate:    0.25,
			CrossoverRate:  0.8,
			MutationRate:   0.1,
			RetryFactor:    1000,
		},
		evaluator: evaluator,
		logger:    logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.config.validate(); err != nil {
		return nil, err
	}

	o.elites = eliteCount(o.config.ElitismRate, o.config.PopulationSize)
	o.weights = evaluator.Weights()

	seed := o.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	o.rng = rand.New(rand.NewSource(seed))
	return o, nil
}

// SetProgressReporter wires a coarse per-generation progress callback, for
// CLIs that want a ticker without parsing logs.
func (o *Weighted) SetProgressReporter(reporter core.ProgressReporter) {
	o.progress = reporter
}

// Run executes the search. The result lists the final elite set, best
// scalar first, and is well defined even on error.
func (o *Weighted) Run(ctx context.Context, model core.Model, variations []core.AttributeVariation) (*core.Result, error) {
	result := &core.Result{Reason: core.TerminationCompleted}
	if model == nil {
		result.Reason = core.TerminationAborted
		return result, errors.New(errors.InvalidInput, "a base model is required")
	}
	if err := core.ValidateVariations(variations); err != nil {
		result.Reason = core.TerminationAborted
		return result, err
	}

	start := time.Now()
	o.logger.Info(ctx, "starting weighted search: population=%d generations=%d elites=%d workers=%d",
		o.config.PopulationSize, o.config.Generations, o.elites, o.evaluator.Workers())

	seen := make(map[string]struct{})
	population := o.seedPopulation(variations, seen)
	var survivors []*core.Individual

	for gen := 0; gen < o.config.Generations; gen++ {
		if err := errors.CheckContext(ctx, "weighted generation"); err != nil {
			result.Reason = core.TerminationAborted
			return result, err
		}
		genCtx := logging.WithGeneration(ctx, gen)
		genStart := time.Now()

		o.evaluator.EvaluateAll(genCtx, model, variations, population)

		valid := evaluatedOnly(population)
		if len(valid) < o.elites {
			result.Reason = core.TerminationAborted
			return result, errors.WithFields(
				errors.New(errors.GenerationStarved, "not enough valid individuals to fill the elite set"),
				errors.Fields{"generation": gen, "valid": len(valid), "elites": o.elites})
		}

		stats := o.recordStats(genCtx, gen, len(population), valid, time.Since(genStart))
		result.Stats = append(result.Stats, stats)
		result.Generations = gen + 1
		if o.progress != nil {
			o.progress.Report("generation", gen+1, o.config.Generations)
		}

		survivors = o.rankByScalar(valid)[:o.elites]

		if gen == o.config.Generations-1 {
			break
		}

		children := o.breed(genCtx, survivors, variations, seen)
		if len(children) == 0 {
			o.logger.Info(genCtx, "search space exhausted after %d generations", gen+1)
			result.Reason = core.TerminationExhausted
			break
		}

		population = make([]*core.Individual, 0, len(survivors)+len(children))
		population = append(population, survivors...)
		population = append(population, children...)
	}

	result.Individuals = survivors
	o.logger.Info(ctx, "weighted search finished: reason=%s generations=%d survivors=%d elapsed=%s",
		result.Reason, result.Generations, len(result.Individuals), time.Since(start))
	return result, nil
}

// seedPopulation fills the initial population with random, genetically
// distinct individuals.
func (o *Weighted) seedPopulation(variations []core.AttributeVariation, seen map[string]struct{}) []*core.Individual {
	budget := o.config.RetryFactor * o.config.PopulationSize
	population := make([]*core.Individual, 0, o.config.PopulationSize)
	for tries := 0; len(population) < o.config.PopulationSize && tries < budget; tries++ {
		ind := RandomIndividual(variations, o.rng)
		if claim(seen, ind.Fingerprint()) {
			population = append(population, ind)
		}
	}
	return population
}

// rankByScalar orders valid individuals by their weighted fitness sum,
// best first.
func (o *Weighted) rankByScalar(valid []*core.Individual) []*core.Individual {
	ranked := append([]*core.Individual(nil), valid...)
	sort.SliceStable(ranked, func(a, b int) bool {
		return metrics.Aggregate(ranked[a].Fitness, o.weights) > metrics.Aggregate(ranked[b].Fitness, o.weights)
	})
	return ranked
}

// breed produces offspring from the elite set: each slot crosses two elites
// with the configured probability (otherwise it copies one parent), then
// mutates with the configured probability. Genotypes already scheduled
// during the run are discarded and retried within the shared budget.
func (o *Weighted) breed(ctx context.Context, elites []*core.Individual, variations []core.AttributeVariation, seen map[string]struct{}) []*core.Individual {
	target := o.config.PopulationSize - len(elites)
	if target <= 0 {
		return nil
	}
	budget := o.config.RetryFactor * o.config.PopulationSize
	children := make([]*core.Individual, 0, target)

	for tries := 0; len(children) < target && tries < budget; tries++ {
		parent := elites[o.rng.Intn(len(elites))]
		child := parent.Clone()
		if len(elites) >= 2 && o.rng.Float64() < o.config.CrossoverRate {
			other := o.pickOther(elites, parent)
			child = Crossover(parent, other, 0.5, o.rng)
		}
		if o.rng.Float64() < o.config.MutationRate {
			child = Mutate(child, variations, o.rng)
		}
		if claim(seen, child.Fingerprint()) {
			children = append(children, child)
		}
	}

	if len(children) < target {
		o.logger.Warn(ctx, "offspring retry budget exhausted: produced %d of %d new genotypes",
			len(children), target)
	}
	return children
}

// pickOther samples an elite other than the given parent, by identity.
func (o *Weighted) pickOther(elites []*core.Individual, parent *core.Individual) *core.Individual {
	for {
		other := elites[o.rng.Intn(len(elites))]
		if other != parent {
			return other
		}
	}
}

func (o *Weighted) recordStats(ctx context.Context, generation, evaluated int, valid []*core.Individual, elapsed time.Duration) metrics.GenerationStats {
	aggregates := make([]float64, len(valid))
	for i, ind := range valid {
		aggregates[i] = metrics.Aggregate(ind.Fitness, o.weights)
	}
	stats := metrics.Summarize(generation, evaluated, aggregates)

	o.logger.Info(ctx, "generation %d: evaluated=%d valid=%d mean=%.4f std=%.4f min=%.4f max=%.4f",
		generation, stats.Evaluated, stats.Valid, stats.Mean, stats.Std, stats.Min, stats.Max)
	if session := logging.GetTraceSession(ctx); session != nil {
		_ = session.EmitGeneration(generation, stats.Evaluated, stats.Valid,
			stats.Mean, stats.Std, stats.Min, stats.Max, elapsed.Milliseconds())
	}
	return stats
}
