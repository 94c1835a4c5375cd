package optimizers

import (
	"fmt"
	"math"
	"sort"

	"github.com/gridwright/evosize/pkg/core"
)

// Dominates reports whether a Pareto-dominates b under the maximization
// convention: at least as good in every objective and strictly better in at
// least one. Objective signs are applied upstream by the evaluator, so a
// larger signed value is always better here. An individual without fitness
// neither dominates nor is dominated.
func Dominates(a, b *core.Individual) bool {
	if a == nil || b == nil || !a.Evaluated() || !b.Evaluated() {
		return false
	}
	better := false
	for i, av := range a.Fitness {
		bv := b.Fitness[i]
		if av < bv {
			return false
		}
		if av > bv {
			better = true
		}
	}
	return better
}

// FastNonDominatedSort partitions population indices into ranked Pareto
// fronts. Front 0 holds every index dominated by no other; later fronts are
// peeled once all their dominators sit in earlier fronts. Every index lands
// in exactly one front. Unevaluated individuals are dominated by no one and
// therefore end up in front 0; callers filter them out before treating
// front 0 as a result set.
func FastNonDominatedSort(population []*core.Individual) [][]int {
	n := len(population)
	if n == 0 {
		return nil
	}

	dominated := make([][]int, n)
	dominators := make([]int, n)
	var front []int
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if Dominates(population[i], population[j]) {
				dominated[i] = append(dominated[i], j)
			} else if Dominates(population[j], population[i]) {
				dominators[i]++
			}
		}
		if dominators[i] == 0 {
			front = append(front, i)
		}
	}

	fronts := [][]int{front}
	for {
		var next []int
		for _, i := range front {
			for _, j := range dominated[i] {
				dominators[j]--
				if dominators[j] == 0 {
					next = append(next, j)
				}
			}
		}
		if len(next) == 0 {
			return fronts
		}
		fronts = append(fronts, next)
		front = next
	}
}

// CrowdingDistance scores how isolated each member of a front is in
// objective space. Per objective the front is sorted ascending: the two
// boundary members receive +Inf so extreme solutions are never pruned, and
// each interior member accumulates the gap between its neighbours normalized
// by the objective's spread (nothing when the spread is zero). The total is
// the sum over all objectives. Members must carry fitness vectors of equal
// length; a mismatch is a programming error and panics.
func CrowdingDistance(front []*core.Individual) []float64 {
	n := len(front)
	distances := make([]float64, n)
	if n == 0 {
		return distances
	}

	objectives := len(front[0].Fitness)
	for _, member := range front {
		if len(member.Fitness) != objectives {
			panic(fmt.Sprintf("crowding distance over mixed fitness lengths: %d vs %d",
				len(member.Fitness), objectives))
		}
	}

	order := make([]int, n)
	for obj := 0; obj < objectives; obj++ {
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return front[order[a]].Fitness[obj] < front[order[b]].Fitness[obj]
		})

		distances[order[0]] = math.Inf(1)
		distances[order[n-1]] = math.Inf(1)

		spread := front[order[n-1]].Fitness[obj] - front[order[0]].Fitness[obj]
		if spread == 0 {
			continue
		}
		for k := 1; k < n-1; k++ {
			member := order[k]
			if math.IsInf(distances[member], 1) {
				continue
			}
			gap := front[order[k+1]].Fitness[obj] - front[order[k-1]].Fitness[obj]
			distances[member] += gap / spread
		}
	}
	return distances
}

// EnvironmentalSelect picks n survivors by NSGA-II environmental selection:
// whole fronts are taken in rank order while they fit, and the first front
// that would overflow the remaining slots is cut by descending crowding
// distance. All members must be evaluated.
func EnvironmentalSelect(population []*core.Individual, n int) []*core.Individual {
	if n <= 0 || len(population) == 0 {
		return nil
	}
	if n > len(population) {
		n = len(population)
	}

	selected := make([]*core.Individual, 0, n)
	for _, front := range FastNonDominatedSort(population) {
		remaining := n - len(selected)
		if remaining <= 0 {
			break
		}
		if len(front) <= remaining {
			for _, idx := range front {
				selected = append(selected, population[idx])
			}
			continue
		}

		members := make([]*core.Individual, len(front))
		for i, idx := range front {
			members[i] = population[idx]
		}
		byDistance := sortByValues(len(members), CrowdingDistance(members))
		for i := len(byDistance) - 1; remaining > 0; i-- {
			selected = append(selected, members[byDistance[i]])
			remaining--
		}
	}
	return selected
}

// sortByValues returns the indices of the n smallest values in ascending
// order. Ties keep their original relative order.
func sortByValues(n int, values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})
	if n > len(order) {
		n = len(order)
	}
	return order[:n]
}
