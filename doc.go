// Package evosize is an evolutionary sizing engine for energy system
// models: it searches the attribute space of a dispatch-simulated plant for
// configurations that are Pareto-optimal across competing objectives such as
// annual costs and emissions.
//
// The caller supplies three things: a base model (entities with numeric
// attributes), the attribute variations spanning the search space, and a
// Simulator that turns a concrete model into per-component results. The
// engines do the rest: populations of genotypes are sampled, simulated in
// parallel, ranked, and bred across generations.
//
// Key Components:
//
//   - Core: the shared vocabulary. Model, Entity and AttributeVariation
//     describe the search space; Individual carries a genotype and its signed
//     fitness; Simulator and ObjectiveSpec define how configurations are
//     scored; EngineRegistry creates engines by name.
//
//   - Optimizers: the search engines and their machinery:
//     * NSGAII: non-dominated sorting with crowding-distance selection, the
//       multi-objective flagship
//     * Weighted: a single-objective GA over the weighted scalar aggregate
//     * Ascend: optional per-result local search following the dominance
//       gradient after the final generation
//     * Evaluator: worker-pool simulation fan-out with fingerprint
//       memoization
//
//   - Config: YAML configuration with validated defaults for the search
//     problem, both engines, logging, execution limits and caching.
//
//   - Cache: in-memory and SQLite-backed stores keyed by genotype
//     fingerprint, so repeated runs over the same space skip simulation.
//
//   - Logging: structured leveled logging, JSONL run traces and an optional
//     in-memory flight recorder for post-mortem analysis.
//
// Simple Example:
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/gridwright/evosize/pkg/core"
//	    "github.com/gridwright/evosize/pkg/optimizers"
//	)
//
//	func main() {
//	    model := core.Model{"battery": core.Entity{"capacity": 0.0}}
//	    variations := []core.AttributeVariation{
//	        {TargetEntity: "battery", TargetField: "capacity", ValMin: 0, ValMax: 500, ValStep: 25},
//	    }
//	    objectives := []core.ObjectiveSpec{
//	        {Name: "costs", Reduce: core.SumField("annuity_total"), Sign: -1, Weight: 1},
//	        {Name: "emissions", Reduce: core.SumField("annual_emissions"), Sign: -1, Weight: 1},
//	    }
//
//	    evaluator, err := optimizers.NewEvaluator(core.SimulatorFunc(simulate), objectives)
//	    if err != nil {
//	        log.Fatalf("Failed to build evaluator: %v", err)
//	    }
//	    engine, err := optimizers.NewNSGAII(evaluator)
//	    if err != nil {
//	        log.Fatalf("Failed to build engine: %v", err)
//	    }
//
//	    result, err := engine.Run(context.Background(), model, variations)
//	    if err != nil {
//	        log.Fatalf("Search failed: %v", err)
//	    }
//	    for _, ind := range result.Individuals {
//	        fmt.Printf("%v -> %v\n", ind.Genes, ind.Fitness)
//	    }
//	}
//
// The cmd/evosize CLI wires the same pieces from a YAML config file and runs
// them against a bundled demo dispatch heuristic; examples/hybrid_plant
// shows the library API end to end with a custom simulator.
package evosize
