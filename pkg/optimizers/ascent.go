package optimizers

import (
	"context"

	"github.com/gridwright/evosize/pkg/core"
	"github.com/gridwright/evosize/pkg/errors"
)

// ascend fine-tunes the final front by coordinate-wise hill climbing. One
// attribute at a time, every solution probes one step below and one step
// above its current gene; when a probe dominates the solution, the climb
// continues in that direction until domination stops or the next genotype
// was already scheduled earlier in the run. Attributes are treated as
// independent, matching the probing, and stepped dimensions stay on their
// grid. All evaluations go through the shared evaluator, so previously
// scored genotypes are served from the memoization store.
func (o *NSGAII) ascend(ctx context.Context, model core.Model, variations []core.AttributeVariation, front []*core.Individual, seen map[string]struct{}) ([]*core.Individual, error) {
	results := dedupeByFitness(front)
	o.logger.Info(ctx, "gradient ascent over %d distinct solutions", len(results))

	for d, av := range variations {
		if err := errors.CheckContext(ctx, "gradient ascent"); err != nil {
			return results, err
		}
		step := av.ValStep
		if step == 0 {
			step = 1.0
		}
		o.logger.Info(ctx, "ascending attribute %d/%d (%s.%s)",
			d+1, len(variations), av.TargetEntity, av.TargetField)

		// Probe both directions around every solution. Probes may revisit
		// known genotypes; those come back from the store.
		probes := make([]*core.Individual, 0, 2*len(results))
		for _, parent := range results {
			probes = append(probes,
				nudge(parent, d, -step, av),
				nudge(parent, d, +step, av))
		}
		o.evaluator.EvaluateAll(ctx, model, variations, probes)
		for _, probe := range probes {
			claim(seen, probe.Fingerprint())
		}

		directions := make([]float64, len(results))
		for i, parent := range results {
			below, above := probes[2*i], probes[2*i+1]
			switch {
			case Dominates(below, parent):
				if Dominates(above, below) {
					directions[i] = step
					results[i] = above
				} else {
					directions[i] = -step
					results[i] = below
				}
			case Dominates(above, parent):
				directions[i] = step
				results[i] = above
			}
		}

		// March every improving solution one step per round until nothing
		// improves anymore. The round cap only guards against degenerate
		// spaces; claims end each climb well before it.
		for rounds := 0; anyNonZero(directions) && rounds < o.config.RetryFactor; rounds++ {
			children := make([]*core.Individual, len(results))
			for i, parent := range results {
				if directions[i] == 0 {
					continue
				}
				child := nudge(parent, d, directions[i], av)
				if !claim(seen, child.Fingerprint()) {
					directions[i] = 0
					continue
				}
				children[i] = child
			}

			evaluable := make([]*core.Individual, 0, len(children))
			for _, child := range children {
				if child != nil {
					evaluable = append(evaluable, child)
				}
			}
			if len(evaluable) == 0 {
				break
			}
			o.evaluator.EvaluateAll(ctx, model, variations, evaluable)

			for i, child := range children {
				if child == nil {
					continue
				}
				if Dominates(child, results[i]) {
					results[i] = child
				} else {
					directions[i] = 0
				}
			}
		}
	}

	o.logger.Info(ctx, "gradient ascent finished: %d solutions", len(results))
	return results, nil
}

// nudge returns a copy of parent with gene d shifted by delta, snapped back
// into the dimension's legal range.
func nudge(parent *core.Individual, d int, delta float64, av core.AttributeVariation) *core.Individual {
	genes := make([]float64, len(parent.Genes))
	copy(genes, parent.Genes)
	genes[d] = av.SnapToGrid(genes[d] + delta)
	return core.NewIndividual(genes)
}

// dedupeByFitness drops individuals whose fitness vector matches an earlier
// member. Climbing identical solutions in parallel only wastes probes.
func dedupeByFitness(front []*core.Individual) []*core.Individual {
	unique := make([]*core.Individual, 0, len(front))
	for _, candidate := range front {
		known := false
		for _, kept := range unique {
			if equalFitness(kept.Fitness, candidate.Fitness) {
				known = true
				break
			}
		}
		if !known {
			unique = append(unique, candidate)
		}
	}
	return unique
}

func equalFitness(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func anyNonZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return true
		}
	}
	return false
}
