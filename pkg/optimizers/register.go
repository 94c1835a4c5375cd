package optimizers

import (
	"github.com/gridwright/evosize/pkg/core"
)

// Engine names understood by the registry and by configuration files.
const (
	EngineNSGAII   = "nsga2"
	EngineWeighted = "weighted"
)

// RegisterDefaults installs factories for the built-in engines on the given
// registry. Both factories close over the same evaluator, so engines created
// from the registry share the evaluation cache and worker settings.
func RegisterDefaults(registry *core.EngineRegistry, evaluator *Evaluator, nsga2 NSGAIIConfig, weighted WeightedConfig) {
	registry.Register(EngineNSGAII, func() (core.SearchEngine, error) {
		return NewNSGAII(evaluator, WithNSGAIIConfig(nsga2))
	})
	registry.Register(EngineWeighted, func() (core.SearchEngine, error) {
		return NewWeighted(evaluator, WithWeightedConfig(weighted))
	})
}
