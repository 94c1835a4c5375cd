package optimizers

import (
	"context"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/gridwright/evosize/pkg/cache"
	"github.com/gridwright/evosize/pkg/core"
	"github.com/gridwright/evosize/pkg/errors"
	"github.com/gridwright/evosize/pkg/logging"
)

// Evaluator scores individuals: it applies their genes to a private copy of
// the base model, runs the simulator, and reduces the component results to a
// signed fitness vector. Objective signs flip minimization objectives here,
// so everything downstream compares under a single maximization convention.
// Outcomes, including invalid ones, are memoized by genotype fingerprint
// through an EvaluationStore, so a genotype never reaches the simulator
// twice.
type Evaluator struct {
	simulator    core.Simulator
	objectives   []core.ObjectiveSpec
	store        *cache.EvaluationStore
	workers      int
	ignoreZero   bool
	keepPayloads bool
	logger       *logging.Logger
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithEvaluationStore sets the memoization store. Without one the evaluator
// falls back to a disabled store and every evaluation reaches the simulator.
func WithEvaluationStore(store *cache.EvaluationStore) EvaluatorOption {
	return func(e *Evaluator) {
		e.store = store
	}
}

// WithEvaluatorWorkers bounds the evaluation pool. Zero or negative means
// one worker per CPU core.
func WithEvaluatorWorkers(n int) EvaluatorOption {
	return func(e *Evaluator) {
		e.workers = n
	}
}

// WithIgnoreZero removes an entity from the model when its varied gene is
// exactly zero, letting the search decide whether a component exists at all.
func WithIgnoreZero(enabled bool) EvaluatorOption {
	return func(e *Evaluator) {
		e.ignoreZero = enabled
	}
}

// WithKeepPayloads retains the raw component results on every valid
// individual. Payloads are large; keep this off unless a report needs them.
func WithKeepPayloads(enabled bool) EvaluatorOption {
	return func(e *Evaluator) {
		e.keepPayloads = enabled
	}
}

// NewEvaluator creates an evaluator for the given simulator and objective
// set.
func NewEvaluator(simulator core.Simulator, objectives []core.ObjectiveSpec, opts ...EvaluatorOption) (*Evaluator, error) {
	if simulator == nil {
		return nil, errors.New(errors.InvalidInput, "a simulator is required")
	}
	if err := core.ValidateObjectives(objectives); err != nil {
		return nil, err
	}

	e := &Evaluator{
		simulator:  simulator,
		objectives: objectives,
		workers:    runtime.NumCPU(),
		logger:     logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}
	if e.store == nil {
		e.store = cache.NewEvaluationStore(nil, "")
	}
	return e, nil
}

// Workers returns the evaluation pool size.
func (e *Evaluator) Workers() int {
	return e.workers
}

// Weights returns the objective weights, index aligned with the fitness
// vectors the evaluator produces.
func (e *Evaluator) Weights() []float64 {
	weights := make([]float64, len(e.objectives))
	for i, o := range e.objectives {
		weights[i] = o.Weight
	}
	return weights
}

// EvaluateAll scores every unevaluated individual in the population on a
// bounded worker pool and blocks until the whole generation is done. Results
// are written back through the population slot each task was dispatched for,
// so completion order never matters. A failed simulation only leaves its own
// individual unevaluated; sibling tasks keep running.
func (e *Evaluator) EvaluateAll(ctx context.Context, model core.Model, variations []core.AttributeVariation, population []*core.Individual) {
	p := pool.New().WithMaxGoroutines(e.workers)
	for i, ind := range population {
		if ind == nil || ind.Evaluated() {
			continue
		}
		i, ind := i, ind
		p.Go(func() {
			e.evaluate(ctx, i, model, variations, ind)
		})
	}
	p.Wait()
}

// evaluate scores one individual in place. The individual's fitness stays
// unset when the genotype cannot be scored.
func (e *Evaluator) evaluate(ctx context.Context, index int, model core.Model, variations []core.AttributeVariation, ind *core.Individual) {
	fingerprint := ind.Fingerprint()
	start := time.Now()

	outcome, payload, cached, err := e.store.Memoize(ctx, fingerprint, func() (core.EvaluationOutcome, []core.ComponentResult, error) {
		return e.score(ctx, model, variations, ind.Genes)
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		// Only context cancellation surfaces here; the loop notices it on
		// its next generation check.
		e.logger.Debug(ctx, "evaluation %d abandoned: %v", index, err)
		return
	}

	if session := logging.GetTraceSession(ctx); session != nil {
		// Evaluations outside the generational loop, such as post-processing
		// probes, trace with generation -1.
		generation := -1
		if g, ok := logging.GetGeneration(ctx); ok {
			generation = g
		}
		var traceErr error
		if !outcome.IsValid() {
			traceErr = errors.New(errors.SimulationFailed, outcome.Reason)
		}
		_ = session.EmitEvaluation(generation, fingerprint, outcome.Fitness, cached, traceErr, latency)
	}

	if !outcome.IsValid() {
		e.logger.Debug(ctx, "evaluation %d invalid: fingerprint: %s, reason: %s",
			index, fingerprint, outcome.Reason)
		return
	}

	ind.Fitness = append([]float64(nil), outcome.Fitness...)
	if e.keepPayloads {
		ind.Payload = payload
	}
	e.logger.EvaluationResult(ctx, fingerprint, ind.Fitness, latency)
}

// score runs the full evaluation pipeline for one gene tuple: plan and apply
// the gene actions on a fresh model copy, simulate, then reduce and sign
// each objective. Every failure mode past context cancellation folds into an
// invalid outcome so that one broken configuration never aborts the search.
func (e *Evaluator) score(ctx context.Context, model core.Model, variations []core.AttributeVariation, genes []float64) (core.EvaluationOutcome, []core.ComponentResult, error) {
	if err := errors.CheckContext(ctx, "evaluate individual"); err != nil {
		return core.EvaluationOutcome{}, nil, err
	}

	actions, err := core.PlanGeneActions(genes, variations, e.ignoreZero)
	if err != nil {
		return core.InvalidOutcome(err.Error()), nil, nil
	}

	candidate := model.Copy()
	if err := candidate.Apply(actions); err != nil {
		return core.InvalidOutcome(err.Error()), nil, nil
	}

	results, err := e.simulator.Simulate(ctx, candidate)
	if err != nil {
		return core.InvalidOutcome(err.Error()), nil, nil
	}

	fitness := make([]float64, len(e.objectives))
	for i, objective := range e.objectives {
		value, err := objective.Reduce(results)
		if err != nil {
			return core.InvalidOutcome(err.Error()), nil, nil
		}
		fitness[i] = objective.Sign * value
	}

	if !e.keepPayloads {
		results = nil
	}
	return core.ValidOutcome(fitness), results, nil
}
