package optimizers

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridwright/evosize/pkg/cache"
	"github.com/gridwright/evosize/pkg/core"
	"github.com/gridwright/evosize/pkg/errors"
)

// newTestRNG returns a deterministic RNG for tests that only assert
// value-independent properties.
func newTestRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// sizingModel is a minimal dispatch model with two sizable entities.
func sizingModel() core.Model {
	return core.Model{
		"battery":      core.Entity{"capacity": 0.0},
		"electrolyzer": core.Entity{"power_max": 0.0},
	}
}

// sizingVariations spans the two sizable fields: a stepped battery capacity
// and a continuous electrolyzer power limit.
func sizingVariations() []core.AttributeVariation {
	return []core.AttributeVariation{
		{TargetEntity: "battery", TargetField: "capacity", ValMin: 0, ValMax: 10, ValStep: 4},
		{TargetEntity: "electrolyzer", TargetField: "power_max", ValMin: 0, ValMax: 5},
	}
}

// costEmissionObjectives minimizes total annuity and total annual emissions
// with equal weight.
func costEmissionObjectives() []core.ObjectiveSpec {
	return []core.ObjectiveSpec{
		{Name: "costs", Reduce: core.SumField("annuity_total"), Sign: -1, Weight: 1},
		{Name: "emissions", Reduce: core.SumField("annual_emissions"), Sign: -1, Weight: 1},
	}
}

// dispatchSimulator is a deterministic stand-in for the energy system
// simulator. Each entity's installed size is the sum of its numeric fields;
// cost grows with size while emissions shrink, so different sizes genuinely
// trade off. The simulator counts its invocations and records a copy of
// every model it sees, and can be scripted to fail wholesale or for
// selected models.
type dispatchSimulator struct {
	failAll  bool
	failWhen func(model core.Model) bool

	calls atomic.Int64
	mu    sync.Mutex
	seen  []core.Model
}

func (s *dispatchSimulator) Simulate(ctx context.Context, model core.Model) ([]core.ComponentResult, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, model.Copy())
	s.mu.Unlock()

	if s.failAll || (s.failWhen != nil && s.failWhen(model)) {
		return nil, errors.New(errors.SimulationFailed, "infeasible configuration")
	}

	results := make([]core.ComponentResult, 0, len(model))
	for name, entity := range model {
		var size float64
		for _, value := range entity {
			if v, ok := value.(float64); ok {
				size += v
			}
		}
		results = append(results, core.ComponentResult{
			Name: name,
			Values: map[string]float64{
				"annuity_total":    100 + 10*size,
				"annual_emissions": 50 - size,
			},
		})
	}
	return results, nil
}

func (s *dispatchSimulator) Calls() int64 {
	return s.calls.Load()
}

func (s *dispatchSimulator) Models() []core.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Model(nil), s.seen...)
}

// memoryStore builds an evaluation store over a fresh in-memory backend.
func memoryStore(t *testing.T) *cache.EvaluationStore {
	t.Helper()
	backend, err := cache.NewMemoryCache(cache.CacheConfig{
		Type:       "memory",
		DefaultTTL: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return cache.NewEvaluationStore(backend, "sizing_test")
}
