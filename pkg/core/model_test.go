package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel() Model {
	return Model{
		"pv": Entity{
			"peak_power": 50.0,
			"financials": map[string]interface{}{
				"capex": 1200.0,
				"opex":  []interface{}{10.0, 12.0},
			},
		},
		"battery": Entity{
			"capacity": 100.0,
		},
	}
}

func TestModelCopy(t *testing.T) {
	original := testModel()
	clone := original.Copy()

	require.Equal(t, original, clone)

	// Top-level fields are independent
	clone["battery"]["capacity"] = 7.0
	assert.Equal(t, 100.0, original["battery"]["capacity"])

	// Nested maps are independent
	clone["pv"]["financials"].(map[string]interface{})["capex"] = 1.0
	assert.Equal(t, 1200.0, original["pv"]["financials"].(map[string]interface{})["capex"])

	// Nested slices are independent
	clone["pv"]["financials"].(map[string]interface{})["opex"].([]interface{})[0] = 99.0
	assert.Equal(t, 10.0, original["pv"]["financials"].(map[string]interface{})["opex"].([]interface{})[0])

	// Deleting an entity from the copy keeps the original intact
	delete(clone, "pv")
	assert.Contains(t, original, "pv")
}

func TestPlanGeneActions(t *testing.T) {
	variations := []AttributeVariation{
		{TargetEntity: "pv", TargetField: "peak_power", ValMin: 0, ValMax: 100},
		{TargetEntity: "battery", TargetField: "capacity", ValMin: 0, ValMax: 200},
	}

	t.Run("plain field assignment", func(t *testing.T) {
		actions, err := PlanGeneActions([]float64{30, 0}, variations, false)
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, GeneActionSetField, actions[0].Type)
		assert.Equal(t, 30.0, actions[0].Value)
		// Without ignoreZero a zero gene still sets the field
		assert.Equal(t, GeneActionSetField, actions[1].Type)
		assert.Equal(t, 0.0, actions[1].Value)
	})

	t.Run("zero gene removes the entity", func(t *testing.T) {
		actions, err := PlanGeneActions([]float64{30, 0}, variations, true)
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, GeneActionSetField, actions[0].Type)
		assert.Equal(t, GeneActionRemoveEntity, actions[1].Type)
		assert.Equal(t, "battery", actions[1].Entity)
	})

	t.Run("gene count mismatch", func(t *testing.T) {
		_, err := PlanGeneActions([]float64{30}, variations, false)
		assert.Error(t, err)
	})
}

func TestModelApply(t *testing.T) {
	t.Run("set fields", func(t *testing.T) {
		model := testModel()
		actions := []GeneAction{
			{Type: GeneActionSetField, Entity: "pv", Field: "peak_power", Value: 75},
			{Type: GeneActionSetField, Entity: "battery", Field: "capacity", Value: 20},
		}
		require.NoError(t, model.Apply(actions))
		assert.Equal(t, 75.0, model["pv"]["peak_power"])
		assert.Equal(t, 20.0, model["battery"]["capacity"])
	})

	t.Run("set on missing entity fails", func(t *testing.T) {
		model := testModel()
		err := model.Apply([]GeneAction{
			{Type: GeneActionSetField, Entity: "electrolyzer", Field: "power", Value: 5},
		})
		assert.Error(t, err)
	})

	t.Run("removal is idempotent", func(t *testing.T) {
		model := testModel()
		actions := []GeneAction{
			{Type: GeneActionRemoveEntity, Entity: "battery"},
			{Type: GeneActionRemoveEntity, Entity: "battery"},
		}
		require.NoError(t, model.Apply(actions))
		assert.NotContains(t, model, "battery")
		assert.Contains(t, model, "pv")
	})
}

// Two variations, each targeting its own entity with a zero gene: enabling
// zero pruning must remove exactly the targeted entities, whichever order
// the actions run in.
func TestZeroPruningRemovesTargetedEntities(t *testing.T) {
	variations := []AttributeVariation{
		{TargetEntity: "pv", TargetField: "peak_power", ValMin: 0, ValMax: 100},
		{TargetEntity: "battery", TargetField: "capacity", ValMin: 0, ValMax: 200},
	}

	t.Run("forward order", func(t *testing.T) {
		model := testModel()
		actions, err := PlanGeneActions([]float64{0, 0}, variations, true)
		require.NoError(t, err)
		require.NoError(t, model.Apply(actions))
		assert.Empty(t, model)
	})

	t.Run("reverse order", func(t *testing.T) {
		model := testModel()
		actions, err := PlanGeneActions([]float64{0, 0}, variations, true)
		require.NoError(t, err)
		for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
			actions[i], actions[j] = actions[j], actions[i]
		}
		require.NoError(t, model.Apply(actions))
		assert.Empty(t, model)
	})

	t.Run("only the zero gene's entity is removed", func(t *testing.T) {
		model := testModel()
		actions, err := PlanGeneActions([]float64{50, 0}, variations, true)
		require.NoError(t, err)
		require.NoError(t, model.Apply(actions))
		assert.Contains(t, model, "pv")
		assert.NotContains(t, model, "battery")
		assert.Equal(t, 50.0, model["pv"]["peak_power"])
	})
}
