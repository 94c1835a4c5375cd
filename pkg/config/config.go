package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for an evosize run.
type Config struct {
	// Search problem definition
	Search SearchConfig `yaml:"search,omitempty" validate:"omitempty"`

	// Engine configuration
	Engines EnginesConfig `yaml:"engines,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Execution configuration
	Execution ExecutionConfig `yaml:"execution,omitempty" validate:"omitempty"`

	// Caching configuration (fingerprint memoization store)
	Caching CachingConfig `yaml:"caching,omitempty" validate:"omitempty"`
}

// SearchConfig describes the search problem: the base model, the attribute
// space to explore and the objectives to optimize.
type SearchConfig struct {
	// Name of the search problem, used in logs and trace files
	Name string `yaml:"name,omitempty"`

	// Path to a YAML file holding the base model
	ModelPath string `yaml:"model_path,omitempty" validate:"omitempty,file_path"`

	// Inline base model (entity name -> field -> value);
	// mutually exclusive with model_path
	Model map[string]map[string]interface{} `yaml:"model,omitempty"`

	// Attribute variations spanning the search space
	Variations []VariationConfig `yaml:"variations,omitempty" validate:"omitempty,dive"`

	// Objectives extracted from simulation results
	Objectives []ObjectiveConfig `yaml:"objectives,omitempty" validate:"omitempty,dive"`

	// Remove entities whose varied attribute is zero instead of setting the field
	IgnoreZero bool `yaml:"ignore_zero"`

	// Retain full simulation payloads on individuals (large memory footprint)
	KeepPayloads bool `yaml:"keep_payloads"`
}

// VariationConfig describes one attribute variation: a numeric field on a
// model entity together with its bounds and optional step size.
type VariationConfig struct {
	// Entity holding the varied field
	Entity string `yaml:"entity" validate:"required"`

	// Field to vary
	Field string `yaml:"field" validate:"required"`

	// Minimum value (inclusive)
	Min float64 `yaml:"min"`

	// Maximum value (inclusive)
	Max float64 `yaml:"max"`

	// Step size; zero means continuous
	Step float64 `yaml:"step,omitempty" validate:"omitempty,min=0"`
}

// ObjectiveConfig describes one optimization objective.
type ObjectiveConfig struct {
	// Descriptive name, e.g. "costs"
	Name string `yaml:"name" validate:"required"`

	// Result field summed over all simulated components, e.g. "annuity_total"
	Field string `yaml:"field" validate:"required"`

	// Optimization direction; minimize when omitted
	Direction string `yaml:"direction,omitempty" validate:"omitempty,direction"`

	// Relative importance for scalar aggregation
	Weight float64 `yaml:"weight,omitempty" validate:"omitempty,min=0"`
}

// EnginesConfig holds per-engine configuration.
type EnginesConfig struct {
	// Engine used when none is requested explicitly
	Default string `yaml:"default,omitempty" validate:"omitempty,engine_type"`

	// NSGA-II multi-objective engine
	NSGAII NSGAIIEngineConfig `yaml:"nsga2"`

	// Weighted-sum scalar engine
	Weighted WeightedEngineConfig `yaml:"weighted"`
}

// NSGAIIEngineConfig holds NSGA-II engine configuration.
type NSGAIIEngineConfig struct {
	// Number of individuals per generation
	PopulationSize int `yaml:"population_size" validate:"min=1"`

	// Number of generations to run
	Generations int `yaml:"generations" validate:"min=1"`

	// Fraction of the population carried over as elites
	ElitismRate float64 `yaml:"elitism_rate" validate:"min=0,max=1"`

	// Fraction of offspring produced by crossover (remainder by mutation)
	CrossoverRate float64 `yaml:"crossover_rate" validate:"min=0,max=1"`

	// Per-gene probability of inheriting from the second parent
	GeneSwapProbability float64 `yaml:"gene_swap_probability" validate:"min=0,max=1"`

	// Multiplier for the per-generation duplicate-retry budget
	// (budget = retry_factor * population_size)
	RetryFactor int `yaml:"retry_factor" validate:"min=1"`

	// Follow the fitness gradient of each solution after the final generation
	PostProcessing bool `yaml:"post_processing"`

	// Random seed; zero seeds from the current time
	Seed int64 `yaml:"seed,omitempty"`
}

// WeightedEngineConfig holds weighted-sum scalar engine configuration.
type WeightedEngineConfig struct {
	// Number of individuals per generation
	PopulationSize int `yaml:"population_size" validate:"min=1"`

	// Number of generations to run
	Generations int `yaml:"generations" validate:"min=1"`

	// Fraction of the population carried over as elites
	ElitismRate float64 `yaml:"elitism_rate" validate:"min=0,max=1"`

	// Probability of producing a child by crossover
	CrossoverRate float64 `yaml:"crossover_rate" validate:"min=0,max=1"`

	// Probability of mutating a child after crossover
	MutationRate float64 `yaml:"mutation_rate" validate:"min=0,max=1"`

	// Multiplier for the per-generation duplicate-retry budget
	RetryFactor int `yaml:"retry_factor" validate:"min=1"`

	// Random seed; zero seeds from the current time
	Seed int64 `yaml:"seed,omitempty"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Log level (DEBUG, INFO, WARN, ERROR, FATAL)
	Level string `yaml:"level" validate:"log_level"`

	// Output configurations
	Outputs []LogOutputConfig `yaml:"outputs" validate:"omitempty,dive"`

	// Sampling rate for high-frequency events
	SampleRate uint32 `yaml:"sample_rate"`

	// Default fields to include in all logs
	DefaultFields map[string]interface{} `yaml:"default_fields"`
}

// LogOutputConfig represents a logging output destination.
type LogOutputConfig struct {
	// Type of output (console, file)
	Type string `yaml:"type" validate:"required,output_type"`

	// Output format (json, text)
	Format string `yaml:"format" validate:"omitempty,log_format"`

	// File path (for file outputs)
	FilePath string `yaml:"file_path,omitempty" validate:"omitempty,file_path"`

	// Whether to use colors (for console outputs)
	Colors bool `yaml:"colors"`

	// Log rotation configuration
	Rotation LogRotationConfig `yaml:"rotation,omitempty"`
}

// LogRotationConfig holds log rotation settings.
type LogRotationConfig struct {
	// Maximum file size in bytes before rotation
	MaxSize int64 `yaml:"max_size,omitempty" validate:"omitempty,min=1"`

	// Maximum number of old files to retain
	MaxFiles int `yaml:"max_files,omitempty" validate:"omitempty,min=1"`
}

// ExecutionConfig holds execution-related configuration.
type ExecutionConfig struct {
	// Default timeout for a whole search run
	DefaultTimeout time.Duration `yaml:"default_timeout" validate:"min=1s"`

	// Maximum number of concurrent simulator invocations;
	// zero means one worker per CPU core
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=0"`

	// Context configuration
	Context ContextConfig `yaml:"context"`

	// Tracing configuration
	Tracing TracingConfig `yaml:"tracing"`
}

// ContextConfig holds context-related configuration.
type ContextConfig struct {
	// Default timeout for a single evaluation
	DefaultTimeout time.Duration `yaml:"default_timeout" validate:"min_duration=1s"`

	// Event buffer size
	BufferSize int `yaml:"buffer_size" validate:"min=1"`
}

// TracingConfig holds run-trace configuration. Traces are JSONL files
// recording generation and evaluation events for a run.
type TracingConfig struct {
	// Enable trace recording
	Enabled bool `yaml:"enabled"`

	// Directory for trace files
	Dir string `yaml:"dir,omitempty"`

	// Record one event per evaluation (high volume)
	Evaluations bool `yaml:"evaluations"`

	// Maximum trace file size in bytes before rotation
	MaxFileSize int64 `yaml:"max_file_size,omitempty" validate:"omitempty,min=1"`

	// Maximum number of rotated trace files to retain
	MaxFiles int `yaml:"max_files,omitempty" validate:"omitempty,min=1"`
}

// CachingConfig holds caching configuration.
type CachingConfig struct {
	// Enable caching
	Enabled bool `yaml:"enabled"`

	// Cache TTL
	TTL time.Duration `yaml:"ttl" validate:"omitempty,min=1s"`

	// Maximum cache size (in bytes)
	MaxSize int64 `yaml:"max_size" validate:"omitempty,min=1"`

	// Cache type (memory, sqlite)
	Type string `yaml:"type" validate:"omitempty,cache_type"`

	// SQLite specific configuration
	SQLiteConfig SQLiteCacheConfig `yaml:"sqlite_config,omitempty"`

	// Memory cache specific configuration
	MemoryConfig MemoryCacheConfig `yaml:"memory_config,omitempty"`
}

// SQLiteCacheConfig holds SQLite-specific cache configuration.
type SQLiteCacheConfig struct {
	// Path to SQLite database file
	Path string `yaml:"path" validate:"omitempty,file_path"`

	// Enable WAL mode for better concurrent performance
	EnableWAL bool `yaml:"enable_wal"`

	// Vacuum interval for database maintenance
	VacuumInterval time.Duration `yaml:"vacuum_interval"`

	// Maximum number of connections
	MaxConnections int `yaml:"max_connections"`
}

// MemoryCacheConfig holds memory cache specific configuration.
type MemoryCacheConfig struct {
	// Cleanup interval for expired entries
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// Number of shards for concurrent access
	ShardCount int `yaml:"shard_count"`
}

// Validate validates the configuration using the singleton validator.
func (c *Config) Validate() error {
	return ValidateConfiguration(c)
}

// Load reads a YAML configuration file over the defaults and validates the
// result. Keys absent from the file keep their default values; keys present
// in the file override them, including explicit zeros and booleans.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
