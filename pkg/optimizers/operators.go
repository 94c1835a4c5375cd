package optimizers

import (
	"math"
	"math/rand"

	"github.com/gridwright/evosize/pkg/core"
)

// RandomIndividual samples one random individual from the search space, one
// gene per variation. Grid dimensions land exactly on grid points,
// continuous dimensions are uniform over their range.
func RandomIndividual(variations []core.AttributeVariation, rng *rand.Rand) *core.Individual {
	genes := make([]float64, len(variations))
	for d, av := range variations {
		genes[d] = av.Sample(rng)
	}
	return core.NewIndividual(genes)
}

// InitialPopulation samples n random individuals. Duplicates are possible;
// engines that need distinct genotypes deduplicate by fingerprint.
func InitialPopulation(n int, variations []core.AttributeVariation, rng *rand.Rand) []*core.Individual {
	population := make([]*core.Individual, 0, n)
	for i := 0; i < n; i++ {
		population = append(population, RandomIndividual(variations, rng))
	}
	return population
}

// Crossover produces a child by uniform crossover: the child starts as a
// copy of parent1 and takes parent2's gene at each position with probability
// swapProb. The child starts unevaluated, with no fitness or payload.
func Crossover(parent1, parent2 *core.Individual, swapProb float64, rng *rand.Rand) *core.Individual {
	genes := make([]float64, len(parent1.Genes))
	copy(genes, parent1.Genes)
	for i, gene := range parent2.Genes {
		if rng.Float64() < swapProb {
			genes[i] = gene
		}
	}
	return core.NewIndividual(genes)
}

// Mutate produces a child with between one and all genes perturbed by
// Gaussian noise centred on the current value. The spread per gene is a
// third of the distance to the nearest bound, so values close to an edge
// move in small steps; a gene sitting exactly on a bound still moves with
// spread 1. Perturbed values snap to the grid on stepped dimensions and clip
// to the bounds on continuous ones. The child starts unevaluated.
func Mutate(parent *core.Individual, variations []core.AttributeVariation, rng *rand.Rand) *core.Individual {
	genes := make([]float64, len(parent.Genes))
	copy(genes, parent.Genes)

	count := rng.Intn(len(genes)) + 1
	for _, d := range rng.Perm(len(genes))[:count] {
		av := variations[d]
		value := genes[d]

		delta := math.Min(value-av.ValMin, av.ValMax-value)
		sigma := 1.0
		if delta > 0 {
			sigma = delta / 3
		}

		genes[d] = av.SnapToGrid(value + rng.NormFloat64()*sigma)
	}
	return core.NewIndividual(genes)
}
