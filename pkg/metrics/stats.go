package metrics

import (
	"math"
)

// GenerationStats is the per-generation snapshot recorded by the search
// engines: how many individuals were scored, how many came back valid, and
// the distribution of the reportable scalar aggregate across the valid ones.
type GenerationStats struct {
	Generation int
	Evaluated  int
	Valid      int
	Mean       float64
	Std        float64
	Min        float64
	Max        float64
}

// Summarize computes the stats snapshot for one generation from the scalar
// aggregates of its valid individuals. With no values the distribution
// fields are NaN so that "no data" cannot be mistaken for a zero score.
func Summarize(generation, evaluated int, aggregates []float64) GenerationStats {
	stats := GenerationStats{
		Generation: generation,
		Evaluated:  evaluated,
		Valid:      len(aggregates),
		Mean:       math.NaN(),
		Std:        math.NaN(),
		Min:        math.NaN(),
		Max:        math.NaN(),
	}
	if len(aggregates) == 0 {
		return stats
	}
	stats.Mean = Mean(aggregates)
	stats.Std = Std(aggregates)
	stats.Min, stats.Max = MinMax(aggregates)
	return stats
}

// Aggregate collapses a signed fitness vector into the reportable scalar:
// the weighted sum of its components. Vectors and weights must be index
// aligned; missing weights count as zero.
func Aggregate(fitness, weights []float64) float64 {
	var total float64
	for i, f := range fitness {
		if i < len(weights) {
			total += weights[i] * f
		}
	}
	return total
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std returns the population standard deviation of values.
func Std(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// MinMax returns the smallest and largest value in one pass.
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
