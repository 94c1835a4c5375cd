package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gridwright/evosize/internal/testutil"
	"github.com/gridwright/evosize/pkg/config"
	"github.com/gridwright/evosize/pkg/core"
	"github.com/gridwright/evosize/pkg/optimizers"
)

// Covers the registry path the CLI takes: config-shaped engine settings, a
// shared evaluator, and both engines running against the same simulator. The
// single-point grid makes the run deterministic regardless of seed: each
// engine evaluates the sole genotype once and stops exhausted.
func TestRegisteredEnginesRunWithMockedSimulator(t *testing.T) {
	sim := &testutil.MockSimulator{}
	sim.On("Simulate", mock.Anything, mock.Anything).
		Return(testutil.Components("plant", map[string]float64{
			"annuity_total":    10,
			"annual_emissions": 5,
		}), nil)

	objectives := buildObjectives([]config.ObjectiveConfig{
		{Name: "costs", Field: "annuity_total"},
		{Name: "emissions", Field: "annual_emissions"},
	})
	evaluator, err := optimizers.NewEvaluator(sim, objectives)
	require.NoError(t, err)

	registry := core.NewEngineRegistry()
	optimizers.RegisterDefaults(registry, evaluator,
		optimizers.NSGAIIConfig{
			PopulationSize:      2,
			Generations:         2,
			ElitismRate:         0.25,
			CrossoverRate:       0.5,
			GeneSwapProbability: 0.5,
			RetryFactor:         3,
			Seed:                1,
		},
		optimizers.WeightedConfig{
			PopulationSize: 2,
			Generations:    2,
			ElitismRate:    0.25,
			CrossoverRate:  0.5,
			MutationRate:   0.5,
			RetryFactor:    3,
			Seed:           1,
		})

	model := testutil.SingleEntityModel("plant", "size", 0)
	variations := []core.AttributeVariation{testutil.GridVariation("plant", "size", 0, 4, 5)}

	for _, name := range []string{optimizers.EngineWeighted, optimizers.EngineNSGAII} {
		engine, err := registry.Create(name)
		require.NoError(t, err)

		result, err := engine.Run(context.Background(), model, variations)
		require.NoError(t, err, name)

		assert.Equal(t, core.TerminationExhausted, result.Reason, name)
		require.Len(t, result.Individuals, 1, name)
		assert.Equal(t, []float64{0}, result.Individuals[0].Genes, name)
		assert.Equal(t, []float64{-10, -5}, result.Individuals[0].Fitness, name)
	}
	sim.AssertNumberOfCalls(t, "Simulate", 2)
}
