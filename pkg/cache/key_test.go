package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridwright/evosize/pkg/core"
)

func TestNewKeyGenerator(t *testing.T) {
	t.Run("With prefix", func(t *testing.T) {
		generator := NewKeyGenerator("test_")
		assert.Equal(t, "test_", generator.prefix)
	})

	t.Run("Empty prefix gets default", func(t *testing.T) {
		generator := NewKeyGenerator("")
		assert.Equal(t, "evosize_", generator.prefix)
	})
}

func TestGenerateKey(t *testing.T) {
	generator := NewKeyGenerator("test_")

	t.Run("Basic key generation", func(t *testing.T) {
		key := generator.GenerateKey("a1b2c3d4e5f60718", "[0 4 8]")
		assert.True(t, len(key) > 0)
		assert.Contains(t, key, "test_a1b2c3d4e5f60718_")
		assert.Equal(t, 38, len(key)) // test_ (5) + space (16) + _ (1) + hash (16)
	})

	t.Run("Same inputs produce same key", func(t *testing.T) {
		key1 := generator.GenerateKey("a1b2c3d4e5f60718", "[0 4 8]")
		key2 := generator.GenerateKey("a1b2c3d4e5f60718", "[0 4 8]")
		assert.Equal(t, key1, key2)
	})

	t.Run("Different fingerprints produce different keys", func(t *testing.T) {
		key1 := generator.GenerateKey("a1b2c3d4e5f60718", "[0 4 8]")
		key2 := generator.GenerateKey("a1b2c3d4e5f60718", "[0 4 4]")
		assert.NotEqual(t, key1, key2)
	})

	t.Run("Different spaces produce different keys", func(t *testing.T) {
		key1 := generator.GenerateKey("a1b2c3d4e5f60718", "[0 4 8]")
		key2 := generator.GenerateKey("ffee00112233aabb", "[0 4 8]")
		assert.NotEqual(t, key1, key2)
	})
}

func TestInvalidatePattern(t *testing.T) {
	generator := NewKeyGenerator("test_")

	t.Run("Space-scoped pattern", func(t *testing.T) {
		pattern := generator.InvalidatePattern("a1b2c3d4e5f60718")
		assert.Equal(t, "test_a1b2c3d4e5f60718_*", pattern)
	})

	t.Run("Empty space matches everything", func(t *testing.T) {
		pattern := generator.InvalidatePattern("")
		assert.Equal(t, "test_*", pattern)
	})
}

func TestModelDigest(t *testing.T) {
	model := core.Model{
		"wind_turbine": core.Entity{"power_max": 2500.0, "count": 3},
		"grid":         core.Entity{"import_limit": 10000.0},
	}

	t.Run("Deterministic across calls", func(t *testing.T) {
		d1 := ModelDigest(model)
		d2 := ModelDigest(model)
		assert.Equal(t, d1, d2)
		assert.Len(t, d1, 16)
	})

	t.Run("Sensitive to field values", func(t *testing.T) {
		changed := model.Copy()
		changed["wind_turbine"]["power_max"] = 3000.0
		assert.NotEqual(t, ModelDigest(model), ModelDigest(changed))
	})

	t.Run("Sensitive to entity set", func(t *testing.T) {
		trimmed := model.Copy()
		delete(trimmed, "grid")
		assert.NotEqual(t, ModelDigest(model), ModelDigest(trimmed))
	})
}

func TestSpaceDigest(t *testing.T) {
	model := core.Model{
		"wind_turbine": core.Entity{"power_max": 2500.0},
	}
	variations := []core.AttributeVariation{
		{TargetEntity: "wind_turbine", TargetField: "power_max", ValMin: 0, ValMax: 10000, ValStep: 2500},
	}
	objectives := []core.ObjectiveSpec{
		{Name: "annuity_total", Sign: -1},
		{Name: "co2_total", Sign: -1},
	}

	base := SpaceDigest(model, variations, objectives, false)
	assert.Len(t, base, 16)

	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, base, SpaceDigest(model, variations, objectives, false))
	})

	t.Run("Sensitive to variations", func(t *testing.T) {
		wider := []core.AttributeVariation{
			{TargetEntity: "wind_turbine", TargetField: "power_max", ValMin: 0, ValMax: 20000, ValStep: 2500},
		}
		assert.NotEqual(t, base, SpaceDigest(model, wider, objectives, false))
	})

	t.Run("Sensitive to objectives", func(t *testing.T) {
		flipped := []core.ObjectiveSpec{
			{Name: "annuity_total", Sign: 1},
			{Name: "co2_total", Sign: -1},
		}
		assert.NotEqual(t, base, SpaceDigest(model, variations, flipped, false))
	})

	t.Run("Sensitive to zero pruning", func(t *testing.T) {
		assert.NotEqual(t, base, SpaceDigest(model, variations, objectives, true))
	})

	t.Run("Sensitive to base model", func(t *testing.T) {
		other := core.Model{
			"wind_turbine": core.Entity{"power_max": 5000.0},
		}
		assert.NotEqual(t, base, SpaceDigest(other, variations, objectives, false))
	})
}
