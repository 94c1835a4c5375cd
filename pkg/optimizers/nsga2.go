package optimizers

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/gridwright/evosize/pkg/core"
	"github.com/gridwright/evosize/pkg/errors"
	"github.com/gridwright/evosize/pkg/logging"
	"github.com/gridwright/evosize/pkg/metrics"
)

// NSGAIIConfig contains configuration options for the NSGA-II engine.
type NSGAIIConfig struct {
	PopulationSize      int     `json:"population_size"`       // Default: 20
	Generations         int     `json:"generations"`           // Default: 10
	ElitismRate         float64 `json:"elitism_rate"`          // Default: 0.25
	CrossoverRate       float64 `json:"crossover_rate"`        // Default: 0.5
	GeneSwapProbability float64 `json:"gene_swap_probability"` // Default: 0.5
	RetryFactor         int     `json:"retry_factor"`          // Default: 1000
	PostProcessing      bool    `json:"post_processing"`       // Default: false
	Seed                int64   `json:"seed"`                  // Default: current time
}

func (c NSGAIIConfig) validate() error {
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
	if c.GeneSwapProbability < 0 || c.GeneSwapProbability > 1 {
		return errors.New(errors.InvalidInput, "gene swap probability must be in [0, 1]")
	}
	if c.RetryFactor < 1 {
		return errors.New(errors.InvalidInput, "retry factor must be positive")
	}
	return nil
}

// NSGAII is the multi-objective search engine: NSGA-II elitism over signed
// fitness vectors, with uniform crossover, Gaussian mutation, and
// fingerprint deduplication against everything scheduled during the run.
type NSGAII struct {
	config    NSGAIIConfig
	evaluator *Evaluator
	elites    int
	weights   []float64
	rng       *rand.Rand
	logger    *logging.Logger
	progress  core.ProgressReporter
}

var _ core.SearchEngine = (*NSGAII)(nil)

// NSGAIIOption is a functional option for configuring the NSGA-II engine.
type NSGAIIOption func(*NSGAII)

// WithNSGAIIConfig replaces the engine configuration wholesale.
func WithNSGAIIConfig(config NSGAIIConfig) NSGAIIOption {
	return func(o *NSGAII) {
		o.config = config
	}
}

// WithNSGAIISeed pins the random source for reproducible runs.
func WithNSGAIISeed(seed int64) NSGAIIOption {
	return func(o *NSGAII) {
		o.config.Seed = seed
	}
}

// WithNSGAIIPostProcessing toggles the gradient ascent pass over the final
// front.
func WithNSGAIIPostProcessing(enabled bool) NSGAIIOption {
	return func(o *NSGAII) {
		o.config.PostProcessing = enabled
	}
}

// NewNSGAII creates an NSGA-II engine over the given evaluator.
func NewNSGAII(evaluator *Evaluator, opts ...NSGAIIOption) (*NSGAII, error) {
	if evaluator == nil {
		return nil, errors.New(errors.InvalidInput, "an evaluator is required")
	}

	o := &NSGAII{
		config: NSGAIIConfig{
			PopulationSize:      20,
			Generations:         10,
			ElitismRate:         0.25,
			CrossoverRate:       0.5,
			GeneSwapProbability: 0.5,
			RetryFactor:         1000,
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
func (o *NSGAII) SetProgressReporter(reporter core.ProgressReporter) {
	o.progress = reporter
}

// Run executes the search. The returned result is well defined even on
// error: it carries the statistics of every generation that completed before
// the run failed.
func (o *NSGAII) Run(ctx context.Context, model core.Model, variations []core.AttributeVariation) (*core.Result, error) {
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
	o.logger.Info(ctx, "starting nsga2 search: population=%d generations=%d elites=%d workers=%d",
		o.config.PopulationSize, o.config.Generations, o.elites, o.evaluator.Workers())

	// Every fingerprint ever scheduled, so no genotype enters a population
	// twice across the whole run.
	seen := make(map[string]struct{})
	population := o.seedPopulation(variations, seen)
	var front []*core.Individual

	for gen := 0; gen < o.config.Generations; gen++ {
		if err := errors.CheckContext(ctx, "nsga2 generation"); err != nil {
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

		front = frontZero(valid)

		if gen == o.config.Generations-1 {
			break
		}

		elites := EnvironmentalSelect(valid, o.elites)
		children := o.breed(genCtx, elites, variations, seen)
		if len(children) == 0 {
			o.logger.Info(genCtx, "search space exhausted after %d generations", gen+1)
			result.Reason = core.TerminationExhausted
			break
		}

		population = make([]*core.Individual, 0, len(elites)+len(children))
		population = append(population, elites...)
		population = append(population, children...)
	}

	sortByFirstObjective(front)
	result.Individuals = front

	if o.config.PostProcessing && len(front) > 0 {
		improved, err := o.ascend(ctx, model, variations, front, seen)
		if err != nil {
			result.Reason = core.TerminationAborted
			return result, err
		}
		result.Individuals = improved
	}

	o.logger.Info(ctx, "nsga2 search finished: reason=%s generations=%d front=%d elapsed=%s",
		result.Reason, result.Generations, len(result.Individuals), time.Since(start))
	return result, nil
}

// seedPopulation fills the initial population with random, genetically
// distinct individuals.
func (o *NSGAII) seedPopulation(variations []core.AttributeVariation, seen map[string]struct{}) []*core.Individual {
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

// breed produces the offspring for the next generation: crossover children
// first, then mutants until the population is full. Children whose genotype
// was already scheduled at any point in the run are discarded and retried
// within a shared budget of RetryFactor times the population size.
func (o *NSGAII) breed(ctx context.Context, elites []*core.Individual, variations []core.AttributeVariation, seen map[string]struct{}) []*core.Individual {
	target := o.config.PopulationSize - len(elites)
	if target <= 0 {
		return nil
	}
	budget := o.config.RetryFactor * o.config.PopulationSize
	children := make([]*core.Individual, 0, target)

	crossoverTarget := int(math.Round(o.config.CrossoverRate * float64(target)))
	if len(elites) < 2 {
		crossoverTarget = 0
	}

	tries := 0
	for len(children) < crossoverTarget && tries < budget {
		tries++
		first, second := o.pickParents(elites)
		child := Crossover(first, second, o.config.GeneSwapProbability, o.rng)
		if claim(seen, child.Fingerprint()) {
			children = append(children, child)
		}
	}
	for len(children) < target && tries < budget {
		tries++
		parent := elites[o.rng.Intn(len(elites))]
		child := Mutate(parent, variations, o.rng)
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

// pickParents samples two distinct elites.
func (o *NSGAII) pickParents(elites []*core.Individual) (*core.Individual, *core.Individual) {
	i := o.rng.Intn(len(elites))
	j := o.rng.Intn(len(elites) - 1)
	if j >= i {
		j++
	}
	return elites[i], elites[j]
}

func (o *NSGAII) recordStats(ctx context.Context, generation, evaluated int, valid []*core.Individual, elapsed time.Duration) metrics.GenerationStats {
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

// eliteCount turns the elitism rate into a slot count, at least one and at
// most the whole population.
func eliteCount(rate float64, populationSize int) int {
	count := int(math.Round(rate * float64(populationSize)))
	if count < 1 {
		count = 1
	}
	if count > populationSize {
		count = populationSize
	}
	return count
}

// claim marks a fingerprint as scheduled, reporting whether it was new.
func claim(seen map[string]struct{}, fingerprint string) bool {
	if _, ok := seen[fingerprint]; ok {
		return false
	}
	seen[fingerprint] = struct{}{}
	return true
}

// evaluatedOnly filters a population down to the individuals holding valid
// fitness.
func evaluatedOnly(population []*core.Individual) []*core.Individual {
	valid := make([]*core.Individual, 0, len(population))
	for _, ind := range population {
		if ind != nil && ind.Evaluated() {
			valid = append(valid, ind)
		}
	}
	return valid
}

// frontZero returns the Pareto-optimal subset of an evaluated population.
func frontZero(valid []*core.Individual) []*core.Individual {
	fronts := FastNonDominatedSort(valid)
	if len(fronts) == 0 {
		return nil
	}
	front := make([]*core.Individual, 0, len(fronts[0]))
	for _, idx := range fronts[0] {
		front = append(front, valid[idx])
	}
	return front
}

// sortByFirstObjective orders individuals by their first signed fitness
// component, best first.
func sortByFirstObjective(individuals []*core.Individual) {
	sort.SliceStable(individuals, func(a, b int) bool {
		return individuals[a].Fitness[0] > individuals[b].Fitness[0]
	})
}
