package core

import (
	"github.com/gridwright/evosize/pkg/errors"
)

// Entity is the configuration of one model component: a flat-or-nested map
// of attribute names to values, as handed to the external simulator.
type Entity map[string]interface{}

// Model maps entity names to their configurations. The engines treat it as
// the canonical description of the system being sized; workers only ever see
// private copies.
type Model map[string]Entity

// Copy returns a deep copy of the model. Nested maps and slices inside
// entity configurations are copied recursively, so mutating the copy never
// touches the original.
func (m Model) Copy() Model {
	out := make(Model, len(m))
	for name, entity := range m {
		out[name] = entity.copy()
	}
	return out
}

func (e Entity) copy() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[k] = copyValue(inner)
		}
		return out
	case Entity:
		return map[string]interface{}(val.copy())
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = copyValue(inner)
		}
		return out
	case []float64:
		out := make([]float64, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// GeneActionType distinguishes what applying a gene to the model means.
type GeneActionType int

const (
	// GeneActionSetField writes the gene value into the target field.
	GeneActionSetField GeneActionType = iota
	// GeneActionRemoveEntity deletes the target entity from the model
	// entirely, letting the search decide whether a component exists at all.
	GeneActionRemoveEntity
)

// GeneAction is one planned model edit derived from a gene value.
type GeneAction struct {
	Type   GeneActionType
	Entity string
	Field  string
	Value  float64
}

// PlanGeneActions translates a gene tuple into explicit model edits. With
// ignoreZero enabled, a gene that equals exactly zero removes its entity
// instead of setting the field.
func PlanGeneActions(genes []float64, variations []AttributeVariation, ignoreZero bool) ([]GeneAction, error) {
	if len(genes) != len(variations) {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "gene count does not match variation count"),
			errors.Fields{"genes": len(genes), "variations": len(variations)})
	}
	actions := make([]GeneAction, 0, len(genes))
	for i, av := range variations {
		if ignoreZero && genes[i] == 0 {
			actions = append(actions, GeneAction{
				Type:   GeneActionRemoveEntity,
				Entity: av.TargetEntity,
			})
			continue
		}
		actions = append(actions, GeneAction{
			Type:   GeneActionSetField,
			Entity: av.TargetEntity,
			Field:  av.TargetField,
			Value:  genes[i],
		})
	}
	return actions, nil
}

// Apply executes planned edits in order, mutating the model in place.
// Removing an entity that is already gone is a no-op, so several genes may
// target the same entity. Setting a field on a missing entity is an error:
// the configuration references a component the model does not define, or one
// an earlier action removed.
func (m Model) Apply(actions []GeneAction) error {
	for _, action := range actions {
		switch action.Type {
		case GeneActionRemoveEntity:
			delete(m, action.Entity)
		case GeneActionSetField:
			entity, ok := m[action.Entity]
			if !ok {
				return errors.WithFields(
					errors.New(errors.ResourceNotFound, "model does not define the target entity"),
					errors.Fields{"entity": action.Entity, "field": action.Field})
			}
			entity[action.Field] = action.Value
		}
	}
	return nil
}
