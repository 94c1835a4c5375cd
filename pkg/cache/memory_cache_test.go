package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	config := CacheConfig{
		Type:       "memory",
		MaxSize:    1024,
		DefaultTTL: time.Hour,
		MemoryConfig: MemoryConfig{
			CleanupInterval: time.Minute,
		},
	}

	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		key := "evosize_space1_[0 4 8]"
		value := []byte(`{"fitness":[-1250,-87.5]}`)

		err := cache.Set(ctx, key, value, 0)
		assert.NoError(t, err)

		retrieved, found, err := cache.Get(ctx, key)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, value, retrieved)
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		retrieved, found, err := cache.Get(ctx, "evosize_space1_[9 9 9]")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, retrieved)
	})

	t.Run("Delete", func(t *testing.T) {
		key := "evosize_space1_[4 4 0]"
		value := []byte(`{"reason":"solver infeasible"}`)

		err := cache.Set(ctx, key, value, 0)
		assert.NoError(t, err)

		_, found, err := cache.Get(ctx, key)
		assert.NoError(t, err)
		assert.True(t, found)

		err = cache.Delete(ctx, key)
		assert.NoError(t, err)

		_, found, err = cache.Get(ctx, key)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Clear", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			key := fmt.Sprintf("evosize_space1_[%d 0 0]", i)
			err := cache.Set(ctx, key, []byte(`{"fitness":[-1]}`), 0)
			assert.NoError(t, err)
		}

		err := cache.Clear(ctx)
		assert.NoError(t, err)

		for i := 0; i < 5; i++ {
			key := fmt.Sprintf("evosize_space1_[%d 0 0]", i)
			retrieved, found, err := cache.Get(ctx, key)
			assert.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, retrieved)
		}
	})
}

func TestMemoryCache_TTL(t *testing.T) {
	config := CacheConfig{
		Type:       "memory",
		MaxSize:    1024,
		DefaultTTL: 100 * time.Millisecond,
		MemoryConfig: MemoryConfig{
			CleanupInterval: 50 * time.Millisecond,
		},
	}

	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	t.Run("TTL expiration", func(t *testing.T) {
		key := "ttl-outcome"
		value := []byte(`{"fitness":[-10]}`)

		err := cache.Set(ctx, key, value, 50*time.Millisecond)
		assert.NoError(t, err)

		retrieved, found, err := cache.Get(ctx, key)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, value, retrieved)

		time.Sleep(100 * time.Millisecond)

		retrieved, found, err = cache.Get(ctx, key)
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, retrieved)
	})

	t.Run("Default TTL", func(t *testing.T) {
		key := "default-ttl-outcome"
		value := []byte(`{"fitness":[-20]}`)

		err := cache.Set(ctx, key, value, 0)
		assert.NoError(t, err)

		retrieved, found, err := cache.Get(ctx, key)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, value, retrieved)

		time.Sleep(150 * time.Millisecond)

		retrieved, found, err = cache.Get(ctx, key)
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, retrieved)
	})

	t.Run("No TTL", func(t *testing.T) {
		configNoTTL := CacheConfig{
			Type:    "memory",
			MaxSize: 1024,
			MemoryConfig: MemoryConfig{
				CleanupInterval: 50 * time.Millisecond,
			},
		}

		cacheNoTTL, err := NewMemoryCache(configNoTTL)
		require.NoError(t, err)
		defer cacheNoTTL.Close()

		key := "no-ttl-outcome"
		value := []byte(`{"fitness":[-30]}`)

		err = cacheNoTTL.Set(ctx, key, value, 0)
		assert.NoError(t, err)

		time.Sleep(100 * time.Millisecond)

		retrieved, found, err := cacheNoTTL.Get(ctx, key)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, value, retrieved)
	})
}

func TestMemoryCache_SizeLimit(t *testing.T) {
	config := CacheConfig{
		Type:    "memory",
		MaxSize: 100, // Small size for testing
		MemoryConfig: MemoryConfig{
			CleanupInterval: time.Minute,
		},
	}

	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	t.Run("Value too large", func(t *testing.T) {
		value := make([]byte, 200) // Larger than max size

		err := cache.Set(ctx, "large-payload", value, 0)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds max cache size")
	})

	t.Run("LRU eviction", func(t *testing.T) {
		err := cache.Set(ctx, "key1", make([]byte, 40), 0)
		assert.NoError(t, err)

		err = cache.Set(ctx, "key2", make([]byte, 40), 0)
		assert.NoError(t, err)

		// Third insert exceeds MaxSize and should evict key1
		err = cache.Set(ctx, "key3", make([]byte, 40), 0)
		assert.NoError(t, err)

		_, found, err := cache.Get(ctx, "key1")
		assert.NoError(t, err)
		assert.False(t, found)

		_, found, err = cache.Get(ctx, "key2")
		assert.NoError(t, err)
		assert.True(t, found)

		_, found, err = cache.Get(ctx, "key3")
		assert.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Update existing key", func(t *testing.T) {
		key := "update-key"
		value1 := []byte("small")
		value2 := make([]byte, 50)

		err := cache.Set(ctx, key, value1, 0)
		assert.NoError(t, err)

		err = cache.Set(ctx, key, value2, 0)
		assert.NoError(t, err)

		retrieved, found, err := cache.Get(ctx, key)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, value2, retrieved)
	})
}

func TestMemoryCache_Stats(t *testing.T) {
	config := CacheConfig{
		Type:    "memory",
		MaxSize: 1024,
		MemoryConfig: MemoryConfig{
			CleanupInterval: time.Minute,
		},
	}

	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	stats := cache.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.Equal(t, int64(0), stats.Sets)
	assert.Equal(t, int64(0), stats.Deletes)
	assert.Equal(t, int64(0), stats.Size)
	assert.Equal(t, int64(1024), stats.MaxSize)

	key := "stats-outcome"
	value := []byte(`{"fitness":[-5,-3]}`)
	err = cache.Set(ctx, key, value, 0)
	assert.NoError(t, err)

	stats = cache.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(len(value)), stats.Size)

	_, found, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.True(t, found)

	stats = cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1.0, stats.HitRate())

	_, found, err = cache.Get(ctx, "never-evaluated")
	assert.NoError(t, err)
	assert.False(t, found)

	stats = cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate())

	err = cache.Delete(ctx, key)
	assert.NoError(t, err)

	stats = cache.Stats()
	assert.Equal(t, int64(1), stats.Deletes)
	assert.Equal(t, int64(0), stats.Size)
}

func TestMemoryCache_LRU(t *testing.T) {
	config := CacheConfig{
		Type:    "memory",
		MaxSize: 200,
		MemoryConfig: MemoryConfig{
			CleanupInterval: time.Minute,
		},
	}

	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	err = cache.Set(ctx, "lru1", make([]byte, 50), 0)
	assert.NoError(t, err)

	err = cache.Set(ctx, "lru2", make([]byte, 50), 0)
	assert.NoError(t, err)

	err = cache.Set(ctx, "lru3", make([]byte, 50), 0)
	assert.NoError(t, err)

	// Touch lru1 so lru2 becomes the eviction candidate
	_, found, err := cache.Get(ctx, "lru1")
	assert.NoError(t, err)
	assert.True(t, found)

	err = cache.Set(ctx, "lru4", make([]byte, 70), 0)
	assert.NoError(t, err)

	_, found, err = cache.Get(ctx, "lru2")
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.Get(ctx, "lru1")
	assert.NoError(t, err)
	assert.True(t, found)

	_, found, err = cache.Get(ctx, "lru3")
	assert.NoError(t, err)
	assert.True(t, found)

	_, found, err = cache.Get(ctx, "lru4")
	assert.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryCache_ExportImport(t *testing.T) {
	config := CacheConfig{
		Type:    "memory",
		MaxSize: 1024,
		MemoryConfig: MemoryConfig{
			CleanupInterval: time.Minute,
		},
	}

	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	testData := map[string][]byte{
		"[0 0]": []byte(`{"fitness":[-100,-10]}`),
		"[0 4]": []byte(`{"fitness":[-110,-8]}`),
		"[4 4]": []byte(`{"reason":"solver infeasible"}`),
	}

	for key, value := range testData {
		err := cache.Set(ctx, key, value, time.Hour)
		assert.NoError(t, err)
	}

	t.Run("Export", func(t *testing.T) {
		var exported []CacheEntry
		err := cache.Export(ctx, func(entry CacheEntry) error {
			exported = append(exported, entry)
			return nil
		})
		assert.NoError(t, err)
		assert.Len(t, exported, 3)

		exportedMap := make(map[string][]byte)
		for _, entry := range exported {
			exportedMap[entry.Key] = entry.Value
			assert.False(t, entry.ExpiresAt.IsZero())
			assert.False(t, entry.CreatedAt.IsZero())
			assert.True(t, entry.Size > 0)
		}

		for key, expectedValue := range testData {
			actualValue, exists := exportedMap[key]
			assert.True(t, exists)
			assert.Equal(t, expectedValue, actualValue)
		}
	})

	t.Run("Import", func(t *testing.T) {
		newCache, err := NewMemoryCache(config)
		require.NoError(t, err)
		defer newCache.Close()

		importData := []CacheEntry{
			{
				Key:       "[8 0]",
				Value:     []byte(`{"fitness":[-120,-6]}`),
				ExpiresAt: time.Now().Add(time.Hour),
				CreatedAt: time.Now(),
				Size:      int64(len(`{"fitness":[-120,-6]}`)),
			},
			{
				Key:       "[8 4]",
				Value:     []byte(`{"fitness":[-130,-5]}`),
				ExpiresAt: time.Now().Add(time.Hour),
				CreatedAt: time.Now(),
				Size:      int64(len(`{"fitness":[-130,-5]}`)),
			},
			{
				Key:       "[8 8]",
				Value:     []byte(`{"fitness":[-140,-4]}`),
				ExpiresAt: time.Now().Add(-time.Hour), // Already expired
				CreatedAt: time.Now(),
				Size:      int64(len(`{"fitness":[-140,-4]}`)),
			},
		}

		err = newCache.Import(ctx, importData)
		assert.NoError(t, err)

		retrieved, found, err := newCache.Get(ctx, "[8 0]")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte(`{"fitness":[-120,-6]}`), retrieved)

		retrieved, found, err = newCache.Get(ctx, "[8 4]")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte(`{"fitness":[-130,-5]}`), retrieved)

		// Expired entry should not be imported
		_, found, err = newCache.Get(ctx, "[8 8]")
		assert.NoError(t, err)
		assert.False(t, found)
	})
}

func TestMemoryCache_Cleanup(t *testing.T) {
	config := CacheConfig{
		Type:       "memory",
		MaxSize:    1024,
		DefaultTTL: 50 * time.Millisecond,
		MemoryConfig: MemoryConfig{
			CleanupInterval: 25 * time.Millisecond,
		},
	}

	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	err = cache.Set(ctx, "cleanup1", []byte(`{"fitness":[-1]}`), 40*time.Millisecond)
	assert.NoError(t, err)

	err = cache.Set(ctx, "cleanup2", []byte(`{"fitness":[-2]}`), 40*time.Millisecond)
	assert.NoError(t, err)

	_, found, err := cache.Get(ctx, "cleanup1")
	assert.NoError(t, err)
	assert.True(t, found)

	time.Sleep(100 * time.Millisecond)

	_, found, err = cache.Get(ctx, "cleanup1")
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.Get(ctx, "cleanup2")
	assert.NoError(t, err)
	assert.False(t, found)
}
