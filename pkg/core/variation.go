package core

import (
	"math"
	"math/rand"

	"github.com/gridwright/evosize/pkg/errors"
	"github.com/gridwright/evosize/pkg/utils"
)

// AttributeVariation describes one search dimension: a numeric field on a
// model entity, the inclusive bounds the search may assign to it, and an
// optional discretisation step. A zero ValStep means the dimension is
// continuous.
//
// Variations are constructed once per search dimension and stay immutable for
// the duration of a run.
type AttributeVariation struct {
	TargetEntity string
	TargetField  string
	ValMin       float64
	ValMax       float64
	ValStep      float64
}

// Validate checks the variation's invariants. It is called by the engines
// before any evaluation work begins.
func (av AttributeVariation) Validate() error {
	if av.TargetEntity == "" {
		return errors.New(errors.InvalidInput, "attribute variation requires a target entity")
	}
	if av.TargetField == "" {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "attribute variation requires a target field"),
			errors.Fields{"entity": av.TargetEntity})
	}
	if av.ValMin > av.ValMax {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "attribute variation bounds are inverted"),
			errors.Fields{"entity": av.TargetEntity, "field": av.TargetField,
				"val_min": av.ValMin, "val_max": av.ValMax})
	}
	if av.ValStep < 0 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "attribute variation step must not be negative"),
			errors.Fields{"entity": av.TargetEntity, "field": av.TargetField,
				"val_step": av.ValStep})
	}
	return nil
}

// Discrete reports whether the dimension is restricted to an arithmetic grid.
func (av AttributeVariation) Discrete() bool {
	return av.ValStep > 0
}

// GridPoints returns the number of legal values on a discrete dimension:
// floor((ValMax-ValMin)/ValStep) + 1. It returns 0 for continuous dimensions.
func (av AttributeVariation) GridPoints() int {
	if !av.Discrete() {
		return 0
	}
	return int(math.Floor((av.ValMax-av.ValMin)/av.ValStep)) + 1
}

// Clip forces a value into the inclusive [ValMin, ValMax] interval.
func (av AttributeVariation) Clip(v float64) float64 {
	return utils.Clamp(v, av.ValMin, av.ValMax)
}

// SnapToGrid returns the legal grid point nearest to v. The result always
// lies within the bounds, even when the top of the grid falls short of
// ValMax. On continuous dimensions the value is only clipped.
func (av AttributeVariation) SnapToGrid(v float64) float64 {
	if !av.Discrete() {
		return av.Clip(v)
	}
	idx := math.Round((v - av.ValMin) / av.ValStep)
	idx = utils.Clamp(idx, 0, float64(av.GridPoints()-1))
	return av.ValMin + idx*av.ValStep
}

// Sample draws a uniformly random legal value: a random grid point on
// discrete dimensions, a uniform draw from [ValMin, ValMax] otherwise.
func (av AttributeVariation) Sample(rng *rand.Rand) float64 {
	if av.Discrete() {
		return av.ValMin + float64(rng.Intn(av.GridPoints()))*av.ValStep
	}
	return av.ValMin + rng.Float64()*(av.ValMax-av.ValMin)
}

// ValidateVariations checks a whole search space at once. An empty space is a
// configuration error: there is nothing to search.
func ValidateVariations(variations []AttributeVariation) error {
	if len(variations) == 0 {
		return errors.New(errors.InvalidInput, "search space is empty: no attribute variations")
	}
	for i, av := range variations {
		if err := av.Validate(); err != nil {
			return errors.WithFields(err, errors.Fields{"index": i})
		}
	}
	return nil
}
