package main

import (
	"context"
	"math"

	"github.com/gridwright/evosize/pkg/config"
	"github.com/gridwright/evosize/pkg/core"
	"github.com/gridwright/evosize/pkg/errors"
)

// Stylized plant economics for the bundled demo. The figures are chosen so
// that solar and storage cut emissions but raise the annuity, which gives the
// engines a genuine cost/emissions trade-off to explore.
const (
	hoursPerWeek = 7 * 24
	weeksPerYear = 52

	solarAnnuityPerKW    = 260.0 // per kW of peak power and year
	batteryAnnuityPerKWh = 40.0  // per kWh of capacity and year
	batteryEfficiency    = 0.92  // charge-side losses

	defaultGridPrice          = 0.08  // per imported kWh
	defaultGridEmissionFactor = 0.4   // kg CO2 per imported kWh
	defaultGridImportLimit    = 100.0 // kW connection limit
)

// demoSimulator is the bundled stand-in for a real dispatch solver: a
// deterministic hourly energy balance over one representative week, scaled
// to a full year. Solar generation serves demand first, surplus charges the
// battery, deficits discharge it, and whatever remains is imported from the
// grid. Configurations whose import ever exceeds the connection limit are
// reported as infeasible.
//
// It exists so the CLI and the examples run end to end without an external
// model; real studies plug their own Simulator into the engines.
type demoSimulator struct{}

func (demoSimulator) Simulate(ctx context.Context, model core.Model) ([]core.ComponentResult, error) {
	if err := errors.CheckContext(ctx, "demo simulation"); err != nil {
		return nil, err
	}

	solarPeak := attrFloat(model, "solar", "peak_power", 0)
	batteryCapacity := attrFloat(model, "battery", "capacity", 0)
	importLimit := attrFloat(model, "grid", "import_limit", defaultGridImportLimit)
	price := attrFloat(model, "grid", "energy_price", defaultGridPrice)
	emissionFactor := attrFloat(model, "grid", "emission_factor", defaultGridEmissionFactor)

	var imported, generated, cycled float64
	charge := 0.0
	for h := 0; h < hoursPerWeek; h++ {
		hour := float64(h % 24)
		solar := solarPeak * solarShapeAt(hour)
		generated += solar

		net := demandAt(hour) - solar
		if net < 0 {
			room := batteryCapacity - charge
			stored := math.Min(-net*batteryEfficiency, room)
			charge += stored
			cycled += stored
			continue
		}

		discharge := math.Min(net, charge)
		charge -= discharge
		net -= discharge
		if net > importLimit {
			return nil, errors.WithFields(
				errors.New(errors.SimulationFailed, "grid import exceeds the connection limit"),
				errors.Fields{"import_kw": net, "limit_kw": importLimit})
		}
		imported += net
	}

	annualImport := imported * weeksPerYear
	results := []core.ComponentResult{
		{
			Name: "grid",
			Values: map[string]float64{
				"annuity_total":     annualImport * price,
				"annual_emissions":  annualImport * emissionFactor,
				"annual_import_kwh": annualImport,
			},
		},
	}
	if _, ok := model["solar"]; ok {
		results = append(results, core.ComponentResult{
			Name: "solar",
			Values: map[string]float64{
				"annuity_total":         solarPeak * solarAnnuityPerKW,
				"annual_emissions":      0,
				"annual_generation_kwh": generated * weeksPerYear,
			},
		})
	}
	if _, ok := model["battery"]; ok {
		results = append(results, core.ComponentResult{
			Name: "battery",
			Values: map[string]float64{
				"annuity_total":     batteryCapacity * batteryAnnuityPerKWh,
				"annual_emissions":  0,
				"annual_cycled_kwh": cycled * weeksPerYear,
			},
		})
	}
	return results, nil
}

// demandAt is the demo load profile in kW: a smooth daily swing between 40
// and 120 kW peaking in the mid-afternoon.
func demandAt(hour float64) float64 {
	return 80 + 40*math.Sin(2*math.Pi*(hour-8)/24)
}

// solarShapeAt is the normalized generation profile: zero at night, a sine
// bump between 06:00 and 18:00 peaking at noon.
func solarShapeAt(hour float64) float64 {
	if hour < 6 || hour > 18 {
		return 0
	}
	return math.Sin(math.Pi * (hour - 6) / 12)
}

// attrFloat reads a numeric entity attribute, tolerating the integer types
// YAML produces for whole numbers. Missing entities or fields yield the
// fallback, so the grid entity is entirely optional in demo models.
func attrFloat(model core.Model, entity, field string, fallback float64) float64 {
	fields, ok := model[entity]
	if !ok {
		return fallback
	}
	value, ok := fields[field]
	if !ok {
		return fallback
	}
	switch n := value.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return fallback
}

// demoSearchConfig is the sizing problem used when the loaded configuration
// does not define one: vary the demo plant's solar array and battery against
// total annuity and annual grid emissions.
func demoSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		Name: "demo-plant",
		Model: map[string]map[string]interface{}{
			"solar":   {"peak_power": 0.0},
			"battery": {"capacity": 0.0},
		},
		Variations: []config.VariationConfig{
			{Entity: "solar", Field: "peak_power", Min: 0, Max: 200, Step: 10},
			{Entity: "battery", Field: "capacity", Min: 0, Max: 300, Step: 25},
		},
		Objectives: []config.ObjectiveConfig{
			{Name: "costs", Field: "annuity_total", Direction: "minimize", Weight: 1},
			{Name: "emissions", Field: "annual_emissions", Direction: "minimize", Weight: 1},
		},
		IgnoreZero: true,
	}
}
