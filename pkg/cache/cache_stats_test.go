package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheStats_HitRate(t *testing.T) {
	tests := []struct {
		name     string
		hits     int64
		misses   int64
		expected float64
	}{
		{"No lookups yet", 0, 0, 0.0},
		{"Only hits", 10, 0, 1.0},
		{"Only misses", 0, 10, 0.0},
		{"Half of tuples memoized", 5, 5, 0.5},
		{"Mostly memoized", 75, 25, 0.75},
		{"Mostly fresh tuples", 25, 75, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := CacheStats{
				Hits:   tt.hits,
				Misses: tt.misses,
			}
			assert.Equal(t, tt.expected, stats.HitRate())
		})
	}
}

func TestCacheStats_MissRate(t *testing.T) {
	tests := []struct {
		name     string
		hits     int64
		misses   int64
		expected float64
	}{
		{"No lookups yet", 0, 0, 0.0},
		{"Only hits", 10, 0, 0.0},
		{"Only misses", 0, 10, 1.0},
		{"Half missed", 5, 5, 0.5},
		{"Quarter missed", 75, 25, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := CacheStats{
				Hits:   tt.hits,
				Misses: tt.misses,
			}
			assert.Equal(t, tt.expected, stats.MissRate())
		})
	}
}

func TestCacheStats_RatesSumToOne(t *testing.T) {
	testCases := []struct {
		hits   int64
		misses int64
	}{
		{10, 0},
		{0, 10},
		{50, 50},
		{75, 25},
		{1, 99},
		{999, 1},
	}

	for _, tc := range testCases {
		stats := CacheStats{
			Hits:   tc.hits,
			Misses: tc.misses,
		}

		hitRate := stats.HitRate()
		missRate := stats.MissRate()

		assert.InDelta(t, 1.0, hitRate+missRate, 0.001,
			"HitRate (%f) + MissRate (%f) should equal 1.0", hitRate, missRate)
	}
}

func TestCacheStats_ZeroDivisionSafety(t *testing.T) {
	stats := CacheStats{
		Hits:       0,
		Misses:     0,
		Sets:       0,
		Deletes:    0,
		Size:       0,
		MaxSize:    1000,
		LastAccess: time.Now(),
	}

	assert.Equal(t, 0.0, stats.HitRate())
	assert.Equal(t, 0.0, stats.MissRate())
}
