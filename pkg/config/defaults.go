package config

import (
	"time"
)

// GetDefaultConfig returns a configuration with sensible defaults.
// The search section is left empty: the model, variations and objectives
// define the problem itself and have no meaningful default.
func GetDefaultConfig() *Config {
	return &Config{
		Search:    getDefaultSearchConfig(),
		Engines:   getDefaultEnginesConfig(),
		Logging:   getDefaultLoggingConfig(),
		Execution: getDefaultExecutionConfig(),
		Caching:   getDefaultCachingConfig(),
	}
}

// getDefaultSearchConfig returns the default search configuration.
func getDefaultSearchConfig() SearchConfig {
	return SearchConfig{
		IgnoreZero:   false,
		KeepPayloads: false,
	}
}

// getDefaultEnginesConfig returns the default engine configuration.
func getDefaultEnginesConfig() EnginesConfig {
	return EnginesConfig{
		Default: "nsga2",
		NSGAII: NSGAIIEngineConfig{
			PopulationSize:      20,
			Generations:         10,
			ElitismRate:         0.25,
			CrossoverRate:       0.5,
			GeneSwapProbability: 0.5,
			RetryFactor:         1000,
			PostProcessing:      false,
			Seed:                0,
		},
		Weighted: WeightedEngineConfig{
			PopulationSize: 20,
			Generations:    10,
			ElitismRate:    0.25,
			CrossoverRate:  0.8,
			MutationRate:   0.1,
			RetryFactor:    1000,
			Seed:           0,
		},
	}
}

// getDefaultLoggingConfig returns the default logging configuration.
func getDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level: "INFO",
		Outputs: []LogOutputConfig{
			{
				Type:   "console",
				Format: "text",
				Colors: true,
			},
		},
		SampleRate: 1,
		DefaultFields: map[string]interface{}{
			"service": "evosize",
			"version": "1.0.0",
		},
	}
}

// getDefaultExecutionConfig returns the default execution configuration.
func getDefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		DefaultTimeout: 10 * time.Minute,
		MaxConcurrency: 0, // one worker per CPU core
		Context: ContextConfig{
			DefaultTimeout: 2 * time.Minute,
			BufferSize:     1000,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Dir:         "traces",
			Evaluations: false,
			MaxFileSize: 64 * 1024 * 1024, // 64MB
			MaxFiles:    3,
		},
	}
}

// getDefaultCachingConfig returns the default caching configuration.
func getDefaultCachingConfig() CachingConfig {
	return CachingConfig{
		Enabled: true,
		TTL:     24 * time.Hour,
		MaxSize: 100 * 1024 * 1024, // 100MB
		Type:    "memory",
		MemoryConfig: MemoryCacheConfig{
			CleanupInterval: time.Minute,
			ShardCount:      16,
		},
		SQLiteConfig: SQLiteCacheConfig{
			EnableWAL:      true,
			VacuumInterval: time.Hour,
			MaxConnections: 10,
		},
	}
}

// GetDefaultSearchConfig returns the default search configuration.
func GetDefaultSearchConfig() *SearchConfig {
	config := getDefaultSearchConfig()
	return &config
}

// GetDefaultEnginesConfig returns the default engine configuration.
func GetDefaultEnginesConfig() *EnginesConfig {
	config := getDefaultEnginesConfig()
	return &config
}

// GetDefaultLoggingConfig returns the default logging configuration.
func GetDefaultLoggingConfig() *LoggingConfig {
	config := getDefaultLoggingConfig()
	return &config
}

// GetDefaultExecutionConfig returns the default execution configuration.
func GetDefaultExecutionConfig() *ExecutionConfig {
	config := getDefaultExecutionConfig()
	return &config
}

// GetDefaultCachingConfig returns the default caching configuration.
func GetDefaultCachingConfig() *CachingConfig {
	config := getDefaultCachingConfig()
	return &config
}

// MergeWithDefaults merges a partially specified configuration with the
// defaults, field by field. Zero-valued numeric and string fields are
// treated as unset and keep their default; boolean fields are copied
// verbatim. Callers loading YAML files should prefer Load, which
// unmarshals directly over the defaults and so preserves explicit zeros.
func MergeWithDefaults(partial *Config) *Config {
	config := GetDefaultConfig()
	if partial == nil {
		return config
	}

	mergeSearchConfig(&config.Search, &partial.Search)
	mergeEnginesConfig(&config.Engines, &partial.Engines)
	mergeLoggingConfig(&config.Logging, &partial.Logging)
	mergeExecutionConfig(&config.Execution, &partial.Execution)
	mergeCachingConfig(&config.Caching, &partial.Caching)

	return config
}

// mergeSearchConfig merges search configuration with defaults.
func mergeSearchConfig(target, source *SearchConfig) {
	if source.Name != "" {
		target.Name = source.Name
	}
	if source.ModelPath != "" {
		target.ModelPath = source.ModelPath
	}
	if source.Model != nil {
		target.Model = source.Model
	}
	if len(source.Variations) > 0 {
		target.Variations = source.Variations
	}
	if len(source.Objectives) > 0 {
		target.Objectives = source.Objectives
	}
	target.IgnoreZero = source.IgnoreZero
	target.KeepPayloads = source.KeepPayloads
}

// mergeEnginesConfig merges engine configuration with defaults.
func mergeEnginesConfig(target, source *EnginesConfig) {
	if source.Default != "" {
		target.Default = source.Default
	}
	mergeNSGAIIConfig(&target.NSGAII, &source.NSGAII)
	mergeWeightedConfig(&target.Weighted, &source.Weighted)
}

// mergeNSGAIIConfig merges NSGA-II engine configuration with defaults.
func mergeNSGAIIConfig(target, source *NSGAIIEngineConfig) {
	if source.PopulationSize > 0 {
		target.PopulationSize = source.PopulationSize
	}
	if source.Generations > 0 {
		target.Generations = source.Generations
	}
	if source.ElitismRate > 0 {
		target.ElitismRate = source.ElitismRate
	}
	if source.CrossoverRate > 0 {
		target.CrossoverRate = source.CrossoverRate
	}
	if source.GeneSwapProbability > 0 {
		target.GeneSwapProbability = source.GeneSwapProbability
	}
	if source.RetryFactor > 0 {
		target.RetryFactor = source.RetryFactor
	}
	target.PostProcessing = source.PostProcessing
	if source.Seed != 0 {
		target.Seed = source.Seed
	}
}

// mergeWeightedConfig merges weighted engine configuration with defaults.
func mergeWeightedConfig(target, source *WeightedEngineConfig) {
	if source.PopulationSize > 0 {
		target.PopulationSize = source.PopulationSize
	}
	if source.Generations > 0 {
		target.Generations = source.Generations
	}
	if source.ElitismRate > 0 {
		target.ElitismRate = source.ElitismRate
	}
	if source.CrossoverRate > 0 {
		target.CrossoverRate = source.CrossoverRate
	}
	if source.MutationRate > 0 {
		target.MutationRate = source.MutationRate
	}
	if source.RetryFactor > 0 {
		target.RetryFactor = source.RetryFactor
	}
	if source.Seed != 0 {
		target.Seed = source.Seed
	}
}

// mergeLoggingConfig merges logging configuration with defaults.
func mergeLoggingConfig(target, source *LoggingConfig) {
	if source.Level != "" {
		target.Level = source.Level
	}
	if len(source.Outputs) > 0 {
		target.Outputs = source.Outputs
	}
	if source.SampleRate > 0 {
		target.SampleRate = source.SampleRate
	}
	if source.DefaultFields != nil {
		target.DefaultFields = source.DefaultFields
	}
}

// mergeExecutionConfig merges execution configuration with defaults.
func mergeExecutionConfig(target, source *ExecutionConfig) {
	if source.DefaultTimeout > 0 {
		target.DefaultTimeout = source.DefaultTimeout
	}
	if source.MaxConcurrency > 0 {
		target.MaxConcurrency = source.MaxConcurrency
	}
	if source.Context.DefaultTimeout > 0 {
		target.Context.DefaultTimeout = source.Context.DefaultTimeout
	}
	if source.Context.BufferSize > 0 {
		target.Context.BufferSize = source.Context.BufferSize
	}
	target.Tracing.Enabled = source.Tracing.Enabled
	target.Tracing.Evaluations = source.Tracing.Evaluations
	if source.Tracing.Dir != "" {
		target.Tracing.Dir = source.Tracing.Dir
	}
	if source.Tracing.MaxFileSize > 0 {
		target.Tracing.MaxFileSize = source.Tracing.MaxFileSize
	}
	if source.Tracing.MaxFiles > 0 {
		target.Tracing.MaxFiles = source.Tracing.MaxFiles
	}
}

// mergeCachingConfig merges caching configuration with defaults.
func mergeCachingConfig(target, source *CachingConfig) {
	target.Enabled = source.Enabled
	if source.TTL > 0 {
		target.TTL = source.TTL
	}
	if source.MaxSize > 0 {
		target.MaxSize = source.MaxSize
	}
	if source.Type != "" {
		target.Type = source.Type
	}
	if source.SQLiteConfig.Path != "" {
		target.SQLiteConfig.Path = source.SQLiteConfig.Path
	}
	if source.SQLiteConfig.VacuumInterval > 0 {
		target.SQLiteConfig.VacuumInterval = source.SQLiteConfig.VacuumInterval
	}
	if source.SQLiteConfig.MaxConnections > 0 {
		target.SQLiteConfig.MaxConnections = source.SQLiteConfig.MaxConnections
	}
	if source.MemoryConfig.CleanupInterval > 0 {
		target.MemoryConfig.CleanupInterval = source.MemoryConfig.CleanupInterval
	}
	if source.MemoryConfig.ShardCount > 0 {
		target.MemoryConfig.ShardCount = source.MemoryConfig.ShardCount
	}
}

// ValidateDefaults validates that the default configuration is valid.
func ValidateDefaults() error {
	return GetDefaultConfig().Validate()
}
