package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gridwright/evosize/pkg/config"
	"github.com/gridwright/evosize/pkg/core"
)

var (
	globalCacheInstance Cache
	globalCacheConfig   CacheConfig
	globalCacheMu       sync.RWMutex
)

// EvaluationStore memoizes evaluation outcomes keyed by gene fingerprint.
// It wraps a Cache backend and scopes every key with a search-space digest
// so runs over different models, variations, or objectives never exchange
// entries. A store with no backend is valid: lookups always miss and writes
// are dropped, which disables memoization without touching the callers.
type EvaluationStore struct {
	cache        Cache
	keyGenerator *KeyGenerator
	spaceID      string
	ttl          time.Duration
	enabled      bool
}

// storedOutcome is the persisted form of an evaluation outcome. Payload is
// only present when the producing evaluator was configured to retain raw
// component results.
type storedOutcome struct {
	Fitness []float64              `json:"fitness,omitempty"`
	Reason  string                 `json:"reason,omitempty"`
	Payload []core.ComponentResult `json:"payload,omitempty"`
}

// StoreOption is a functional option for configuring an evaluation store.
type StoreOption func(*EvaluationStore)

// WithTTL sets the TTL for stored outcomes.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *EvaluationStore) {
		s.ttl = ttl
	}
}

// WithKeyPrefix sets a custom key prefix.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *EvaluationStore) {
		s.keyGenerator = NewKeyGenerator(prefix)
	}
}

// WithEnabled sets the initial enabled state.
func WithEnabled(enabled bool) StoreOption {
	return func(s *EvaluationStore) {
		s.enabled = enabled
	}
}

// NewEvaluationStore wires an outcome store over an existing cache backend.
// A nil backend yields a disabled store.
func NewEvaluationStore(c Cache, spaceID string, opts ...StoreOption) *EvaluationStore {
	s := &EvaluationStore{
		cache:        c,
		keyGenerator: NewKeyGenerator("evosize_"),
		spaceID:      spaceID,
		enabled:      c != nil,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenEvaluationStore builds a store from file configuration over the
// process-wide shared backend. When caching is disabled or the backend
// cannot be created, the returned store simply never hits; the search still
// runs, just without memoization across runs.
func OpenEvaluationStore(fileConfig *config.CachingConfig, spaceID string) *EvaluationStore {
	cacheConfig := LoadCacheConfig(fileConfig)
	if !IsEnabled(cacheConfig) {
		return NewEvaluationStore(nil, spaceID)
	}

	c := getOrCreateGlobalCache(cacheConfig)
	return NewEvaluationStore(c, spaceID, WithTTL(cacheConfig.DefaultTTL))
}

// getOrCreateGlobalCache returns the global cache instance, creating it if
// necessary.
func getOrCreateGlobalCache(cacheConfig CacheConfig) Cache {
	globalCacheMu.Lock()
	defer globalCacheMu.Unlock()

	// If config changed, recreate cache
	if globalCacheInstance == nil || !configEqual(globalCacheConfig, cacheConfig) {
		if globalCacheInstance != nil {
			globalCacheInstance.Close()
		}

		var err error
		globalCacheInstance, err = NewCache(cacheConfig)
		if err != nil {
			// Return nil to disable caching rather than failing the run
			return nil
		}
		globalCacheConfig = cacheConfig
	}

	return globalCacheInstance
}

// configEqual checks if two cache configurations are equal.
func configEqual(a, b CacheConfig) bool {
	if a.Type != b.Type ||
		a.DefaultTTL != b.DefaultTTL ||
		a.MaxSize != b.MaxSize {
		return false
	}

	if a.SQLiteConfig.Path != b.SQLiteConfig.Path ||
		a.SQLiteConfig.EnableWAL != b.SQLiteConfig.EnableWAL ||
		a.SQLiteConfig.VacuumInterval != b.SQLiteConfig.VacuumInterval ||
		a.SQLiteConfig.MaxConnections != b.SQLiteConfig.MaxConnections {
		return false
	}

	if a.MemoryConfig.EvictionPolicy != b.MemoryConfig.EvictionPolicy ||
		a.MemoryConfig.CleanupInterval != b.MemoryConfig.CleanupInterval ||
		a.MemoryConfig.ShardCount != b.MemoryConfig.ShardCount {
		return false
	}

	return true
}

// Lookup returns the memoized outcome for a fingerprint, if present. Decode
// failures read as misses so a corrupt entry never poisons a run.
func (s *EvaluationStore) Lookup(ctx context.Context, fingerprint string) (core.EvaluationOutcome, []core.ComponentResult, bool) {
	if !s.enabled || s.cache == nil {
		return core.EvaluationOutcome{}, nil, false
	}

	key := s.keyGenerator.GenerateKey(s.spaceID, fingerprint)
	data, found, err := s.cache.Get(ctx, key)
	if !found || err != nil {
		return core.EvaluationOutcome{}, nil, false
	}

	var rec storedOutcome
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.EvaluationOutcome{}, nil, false
	}

	return core.EvaluationOutcome{Fitness: rec.Fitness, Reason: rec.Reason}, rec.Payload, true
}

// Store persists an outcome. Write failures are swallowed: memoization is an
// optimization and must never fail an evaluation that already succeeded.
func (s *EvaluationStore) Store(ctx context.Context, fingerprint string, outcome core.EvaluationOutcome, payload []core.ComponentResult) {
	if !s.enabled || s.cache == nil {
		return
	}

	data, err := json.Marshal(storedOutcome{
		Fitness: outcome.Fitness,
		Reason:  outcome.Reason,
		Payload: payload,
	})
	if err != nil {
		return
	}

	key := s.keyGenerator.GenerateKey(s.spaceID, fingerprint)
	_ = s.cache.Set(ctx, key, data, s.ttl)
}

// Memoize returns the stored outcome for fingerprint when present, otherwise
// runs evaluate, persists its result, and returns it. The boolean reports
// whether the outcome came from the store. An error from evaluate is
// returned without persisting anything, so aborted evaluations never
// masquerade as definitive outcomes.
func (s *EvaluationStore) Memoize(ctx context.Context, fingerprint string, evaluate func() (core.EvaluationOutcome, []core.ComponentResult, error)) (core.EvaluationOutcome, []core.ComponentResult, bool, error) {
	if outcome, payload, ok := s.Lookup(ctx, fingerprint); ok {
		return outcome, payload, true, nil
	}

	outcome, payload, err := evaluate()
	if err != nil {
		return outcome, payload, false, err
	}

	s.Store(ctx, fingerprint, outcome, payload)
	return outcome, payload, false, nil
}

// SpaceID returns the search-space digest scoping this store's keys.
func (s *EvaluationStore) SpaceID() string {
	return s.spaceID
}

// SetEnabled enables or disables memoization for this store.
func (s *EvaluationStore) SetEnabled(enabled bool) {
	s.enabled = enabled && s.cache != nil
}

// Enabled reports whether lookups can hit.
func (s *EvaluationStore) Enabled() bool {
	return s.enabled && s.cache != nil
}

// Stats returns backend statistics.
func (s *EvaluationStore) Stats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	return s.cache.Stats()
}

// Clear removes every entry from the backend, including entries belonging to
// other search spaces sharing it.
func (s *EvaluationStore) Clear(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}

// ClearGlobalCache clears the process-wide shared backend.
func ClearGlobalCache(ctx context.Context) error {
	globalCacheMu.RLock()
	defer globalCacheMu.RUnlock()

	if globalCacheInstance == nil {
		return nil
	}
	return globalCacheInstance.Clear(ctx)
}

// GetGlobalCacheStats returns statistics for the process-wide backend.
func GetGlobalCacheStats() CacheStats {
	globalCacheMu.RLock()
	defer globalCacheMu.RUnlock()

	if globalCacheInstance == nil {
		return CacheStats{}
	}
	return globalCacheInstance.Stats()
}

// SetGlobalCacheEnabled tears down the shared backend when disabled. This
// affects stores opened after this call.
func SetGlobalCacheEnabled(enabled bool) {
	globalCacheMu.Lock()
	defer globalCacheMu.Unlock()

	if !enabled && globalCacheInstance != nil {
		globalCacheInstance.Close()
		globalCacheInstance = nil
	}
}
