package testutil

import "github.com/gridwright/evosize/pkg/core"

// Components wraps a single component result, the shape most scripted
// simulations need.
func Components(name string, values map[string]float64) []core.ComponentResult {
	return []core.ComponentResult{{Name: name, Values: values}}
}

// GridVariation builds a stepped attribute variation.
func GridVariation(entity, field string, min, max, step float64) core.AttributeVariation {
	return core.AttributeVariation{
		TargetEntity: entity,
		TargetField:  field,
		ValMin:       min,
		ValMax:       max,
		ValStep:      step,
	}
}

// SingleEntityModel builds a model holding one entity with one field.
func SingleEntityModel(entity, field string, value float64) core.Model {
	return core.Model{entity: core.Entity{field: value}}
}
