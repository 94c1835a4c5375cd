package core

import (
	"context"

	"github.com/gridwright/evosize/pkg/errors"
)

// ComponentResult is the structured outcome the simulator reports for one
// model component: named numeric figures such as total annuity or annual
// emissions.
type ComponentResult struct {
	Name   string
	Values map[string]float64
}

// Simulator is the black-box evaluation collaborator. Given a fully
// configured model it either returns per-component results or fails with an
// error for infeasible configurations and solver breakdowns. The engines
// never interpret the error beyond treating the configuration as invalid.
type Simulator interface {
	Simulate(ctx context.Context, model Model) ([]ComponentResult, error)
}

// SimulatorFunc adapts a plain function to the Simulator interface.
type SimulatorFunc func(ctx context.Context, model Model) ([]ComponentResult, error)

func (f SimulatorFunc) Simulate(ctx context.Context, model Model) ([]ComponentResult, error) {
	return f(ctx, model)
}

// Reduction turns a simulation result into a single raw objective value.
type Reduction func(results []ComponentResult) (float64, error)

// ObjectiveSpec describes one search objective: how to reduce the simulation
// result to a number, which direction is better, and how much the objective
// contributes to the reportable scalar aggregate.
type ObjectiveSpec struct {
	// Name labels the objective in logs and reports.
	Name string

	// Reduce extracts the raw objective value from the simulation result.
	Reduce Reduction

	// Sign converts the raw value into the maximization convention: +1 for
	// objectives to maximize, -1 for objectives to minimize. Dominance
	// always prefers larger signed values.
	Sign float64

	// Weight scales this objective's contribution to the scalar aggregate
	// used for generation statistics and the weighted engine.
	Weight float64
}

// Validate checks the objective's invariants.
func (o ObjectiveSpec) Validate() error {
	if o.Name == "" {
		return errors.New(errors.InvalidInput, "objective requires a name")
	}
	if o.Reduce == nil {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "objective requires a reduction"),
			errors.Fields{"objective": o.Name})
	}
	if o.Sign != 1 && o.Sign != -1 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "objective sign must be +1 or -1"),
			errors.Fields{"objective": o.Name, "sign": o.Sign})
	}
	return nil
}

// ValidateObjectives checks a whole objective set.
func ValidateObjectives(objectives []ObjectiveSpec) error {
	if len(objectives) == 0 {
		return errors.New(errors.InvalidInput, "at least one objective is required")
	}
	for _, o := range objectives {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SumField builds the common reduction: sum a named numeric field across all
// components that report it. Components without the field contribute
// nothing; if no component reports it at all the reduction fails, since the
// objective would silently read as zero otherwise.
func SumField(field string) Reduction {
	return func(results []ComponentResult) (float64, error) {
		var total float64
		found := false
		for _, r := range results {
			if v, ok := r.Values[field]; ok {
				total += v
				found = true
			}
		}
		if !found {
			return 0, errors.WithFields(
				errors.New(errors.ObjectiveMissing, "no component reports the objective field"),
				errors.Fields{"field": field})
		}
		return total, nil
	}
}

// EvaluationOutcome is the first-class result of scoring one individual:
// either a valid signed fitness vector, or an invalid marker carrying the
// failure reason. Simulator errors never propagate past this type.
type EvaluationOutcome struct {
	Fitness []float64
	Reason  string
}

// ValidOutcome wraps a signed fitness vector.
func ValidOutcome(fitness []float64) EvaluationOutcome {
	return EvaluationOutcome{Fitness: fitness}
}

// InvalidOutcome records why an individual could not be scored.
func InvalidOutcome(reason string) EvaluationOutcome {
	return EvaluationOutcome{Reason: reason}
}

// IsValid reports whether the outcome carries a fitness vector.
func (o EvaluationOutcome) IsValid() bool {
	return o.Fitness != nil
}
