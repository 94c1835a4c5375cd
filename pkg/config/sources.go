package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source represents a configuration source.
type Source interface {
	// Load loads configuration from the source into the provided config
	Load(config *Config, paths []string) error

	// Name returns the name of the source
	Name() string

	// Priority returns the priority of the source (higher priority overrides lower)
	Priority() int
}

// FileSource loads configuration from YAML files.
type FileSource struct {
	priority int
}

// NewFileSource creates a new file source.
func NewFileSource() *FileSource {
	return &FileSource{priority: 100}
}

// NewFileSourceWithPriority creates a new file source with custom priority.
func NewFileSourceWithPriority(priority int) *FileSource {
	return &FileSource{priority: priority}
}

// Name returns the name of the file source.
func (fs *FileSource) Name() string {
	return "file"
}

// Priority returns the priority of the file source.
func (fs *FileSource) Priority() int {
	return fs.priority
}

// Load loads configuration from YAML files. The file bytes are unmarshaled
// directly over the target config, so only keys present in a file override
// existing values; absent keys keep whatever the target already holds.
func (fs *FileSource) Load(config *Config, paths []string) error {
	for _, path := range paths {
		if !fileExists(path) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
		}
	}

	return nil
}

// EnvironmentSource loads configuration from environment variables.
type EnvironmentSource struct {
	priority int
	prefix   string
}

// NewEnvironmentSource creates a new environment source.
func NewEnvironmentSource() *EnvironmentSource {
	return &EnvironmentSource{
		priority: 200, // Higher priority than file source
		prefix:   "EVOSIZE_",
	}
}

// NewEnvironmentSourceWithPrefix creates a new environment source with custom prefix.
func NewEnvironmentSourceWithPrefix(prefix string) *EnvironmentSource {
	return &EnvironmentSource{
		priority: 200,
		prefix:   prefix,
	}
}

// NewEnvironmentSourceWithOptions creates a new environment source with custom options.
func NewEnvironmentSourceWithOptions(priority int, prefix string) *EnvironmentSource {
	return &EnvironmentSource{
		priority: priority,
		prefix:   prefix,
	}
}

// Name returns the name of the environment source.
func (es *EnvironmentSource) Name() string {
	return "environment"
}

// Priority returns the priority of the environment source.
func (es *EnvironmentSource) Priority() int {
	return es.priority
}

// Load loads configuration from environment variables.
func (es *EnvironmentSource) Load(config *Config, paths []string) error {
	envVars := es.getEnvironmentVariables()

	// Sort keys to ensure consistent processing order
	// Process longer keys first, then shorter ones (so shorter/abbreviated forms take precedence)
	keys := make([]string, 0, len(envVars))
	for key := range envVars {
		keys = append(keys, key)
	}

	// Sort by length (descending) then alphabetically for consistent ordering
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	// Apply environment variable overrides in sorted order
	for _, key := range keys {
		value := envVars[key]
		if err := es.setConfigValue(config, key, value); err != nil {
			return fmt.Errorf("failed to set config value %s=%s: %w", key, value, err)
		}
	}

	return nil
}

// getEnvironmentVariables gets all environment variables with the configured prefix.
func (es *EnvironmentSource) getEnvironmentVariables() map[string]string {
	envVars := make(map[string]string)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key, value := parts[0], parts[1]

		// Only process environment variables with our specific prefix
		if strings.HasPrefix(key, es.prefix) {
			// Convert environment variable to config key
			configKey := strings.ToLower(strings.TrimPrefix(key, es.prefix))
			configKey = strings.ReplaceAll(configKey, "_", ".")
			envVars[configKey] = value
		}
	}

	return envVars
}

// setConfigValue sets a configuration value using dot notation.
func (es *EnvironmentSource) setConfigValue(config *Config, key, value string) error {
	// Handle common configuration paths
	switch {
	case strings.HasPrefix(key, "search."):
		return es.setSearchValue(&config.Search, strings.TrimPrefix(key, "search."), value)
	case key == "engines.default":
		config.Engines.Default = value
		return nil
	case strings.HasPrefix(key, "engines.nsga2.") || strings.HasPrefix(key, "nsga2."):
		subkey := strings.TrimPrefix(key, "engines.nsga2.")
		subkey = strings.TrimPrefix(subkey, "nsga2.")
		return es.setNSGAIIValue(&config.Engines.NSGAII, subkey, value)
	case strings.HasPrefix(key, "engines.weighted.") || strings.HasPrefix(key, "weighted."):
		subkey := strings.TrimPrefix(key, "engines.weighted.")
		subkey = strings.TrimPrefix(subkey, "weighted.")
		return es.setWeightedValue(&config.Engines.Weighted, subkey, value)
	case strings.HasPrefix(key, "logging."):
		return es.setLoggingValue(&config.Logging, strings.TrimPrefix(key, "logging."), value)
	case strings.HasPrefix(key, "execution."):
		return es.setExecutionValue(&config.Execution, strings.TrimPrefix(key, "execution."), value)
	case strings.HasPrefix(key, "caching."):
		return es.setCachingValue(&config.Caching, strings.TrimPrefix(key, "caching."), value)
	default:
		// For unhandled paths, simply ignore them rather than failing
		// This allows for more flexible environment variable usage
		return nil
	}
}

// setSearchValue sets search configuration values.
func (es *EnvironmentSource) setSearchValue(search *SearchConfig, key, value string) error {
	switch key {
	case "name":
		search.Name = value
	case "model.path", "modelPath", "modelpath":
		search.ModelPath = value
	case "ignore.zero", "ignoreZero":
		if ignoreZero, err := strconv.ParseBool(value); err == nil {
			search.IgnoreZero = ignoreZero
		} else {
			return fmt.Errorf("invalid ignore zero flag: %s", value)
		}
	case "keep.payloads", "keepPayloads":
		if keepPayloads, err := strconv.ParseBool(value); err == nil {
			search.KeepPayloads = keepPayloads
		} else {
			return fmt.Errorf("invalid keep payloads flag: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setNSGAIIValue sets NSGA-II engine configuration values.
func (es *EnvironmentSource) setNSGAIIValue(engine *NSGAIIEngineConfig, key, value string) error {
	switch key {
	case "population.size", "populationSize", "populationsize":
		if size, err := strconv.Atoi(value); err == nil {
			engine.PopulationSize = size
		} else {
			return fmt.Errorf("invalid population size: %s", value)
		}
	case "generations", "num.generations", "numGenerations":
		if generations, err := strconv.Atoi(value); err == nil {
			engine.Generations = generations
		} else {
			return fmt.Errorf("invalid generations: %s", value)
		}
	case "elitism.rate", "elitismRate":
		if rate, err := strconv.ParseFloat(value, 64); err == nil {
			engine.ElitismRate = rate
		} else {
			return fmt.Errorf("invalid elitism rate: %s", value)
		}
	case "crossover.rate", "crossoverRate":
		if rate, err := strconv.ParseFloat(value, 64); err == nil {
			engine.CrossoverRate = rate
		} else {
			return fmt.Errorf("invalid crossover rate: %s", value)
		}
	case "gene.swap.probability", "geneSwapProbability":
		if probability, err := strconv.ParseFloat(value, 64); err == nil {
			engine.GeneSwapProbability = probability
		} else {
			return fmt.Errorf("invalid gene swap probability: %s", value)
		}
	case "retry.factor", "retryFactor":
		if factor, err := strconv.Atoi(value); err == nil {
			engine.RetryFactor = factor
		} else {
			return fmt.Errorf("invalid retry factor: %s", value)
		}
	case "post.processing", "postProcessing":
		if postProcessing, err := strconv.ParseBool(value); err == nil {
			engine.PostProcessing = postProcessing
		} else {
			return fmt.Errorf("invalid post processing flag: %s", value)
		}
	case "seed", "random.seed", "randomSeed":
		if seed, err := strconv.ParseInt(value, 10, 64); err == nil {
			engine.Seed = seed
		} else {
			return fmt.Errorf("invalid random seed: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setWeightedValue sets weighted engine configuration values.
func (es *EnvironmentSource) setWeightedValue(engine *WeightedEngineConfig, key, value string) error {
	switch key {
	case "population.size", "populationSize", "populationsize":
		if size, err := strconv.Atoi(value); err == nil {
			engine.PopulationSize = size
		} else {
			return fmt.Errorf("invalid population size: %s", value)
		}
	case "generations", "num.generations", "numGenerations":
		if generations, err := strconv.Atoi(value); err == nil {
			engine.Generations = generations
		} else {
			return fmt.Errorf("invalid generations: %s", value)
		}
	case "elitism.rate", "elitismRate":
		if rate, err := strconv.ParseFloat(value, 64); err == nil {
			engine.ElitismRate = rate
		} else {
			return fmt.Errorf("invalid elitism rate: %s", value)
		}
	case "crossover.rate", "crossoverRate":
		if rate, err := strconv.ParseFloat(value, 64); err == nil {
			engine.CrossoverRate = rate
		} else {
			return fmt.Errorf("invalid crossover rate: %s", value)
		}
	case "mutation.rate", "mutationRate":
		if rate, err := strconv.ParseFloat(value, 64); err == nil {
			engine.MutationRate = rate
		} else {
			return fmt.Errorf("invalid mutation rate: %s", value)
		}
	case "retry.factor", "retryFactor":
		if factor, err := strconv.Atoi(value); err == nil {
			engine.RetryFactor = factor
		} else {
			return fmt.Errorf("invalid retry factor: %s", value)
		}
	case "seed", "random.seed", "randomSeed":
		if seed, err := strconv.ParseInt(value, 10, 64); err == nil {
			engine.Seed = seed
		} else {
			return fmt.Errorf("invalid random seed: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setLoggingValue sets logging configuration values.
func (es *EnvironmentSource) setLoggingValue(logging *LoggingConfig, key, value string) error {
	switch key {
	case "level":
		logging.Level = value
	case "sample.rate", "sampleRate":
		if sampleRate, err := strconv.ParseUint(value, 10, 32); err == nil {
			logging.SampleRate = uint32(sampleRate)
		} else {
			return fmt.Errorf("invalid sample rate: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setExecutionValue sets execution configuration values.
func (es *EnvironmentSource) setExecutionValue(execution *ExecutionConfig, key, value string) error {
	switch key {
	case "default.timeout", "defaultTimeout":
		if timeout, err := es.parseDuration(value); err == nil {
			execution.DefaultTimeout = timeout
		} else {
			return fmt.Errorf("invalid default timeout: %s", value)
		}
	case "max.concurrency", "maxConcurrency":
		if maxConcurrency, err := strconv.Atoi(value); err == nil {
			execution.MaxConcurrency = maxConcurrency
		} else {
			return fmt.Errorf("invalid max concurrency: %s", value)
		}
	case "context.default.timeout", "contextDefaultTimeout":
		if timeout, err := es.parseDuration(value); err == nil {
			execution.Context.DefaultTimeout = timeout
		} else {
			return fmt.Errorf("invalid context timeout: %s", value)
		}
	case "context.buffer.size", "contextBufferSize":
		if size, err := strconv.Atoi(value); err == nil {
			execution.Context.BufferSize = size
		} else {
			return fmt.Errorf("invalid context buffer size: %s", value)
		}
	case "tracing.enabled":
		if enabled, err := strconv.ParseBool(value); err == nil {
			execution.Tracing.Enabled = enabled
		} else {
			return fmt.Errorf("invalid tracing enabled flag: %s", value)
		}
	case "tracing.dir":
		execution.Tracing.Dir = value
	case "tracing.evaluations":
		if evaluations, err := strconv.ParseBool(value); err == nil {
			execution.Tracing.Evaluations = evaluations
		} else {
			return fmt.Errorf("invalid tracing evaluations flag: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setCachingValue sets caching configuration values.
func (es *EnvironmentSource) setCachingValue(caching *CachingConfig, key, value string) error {
	switch key {
	case "enabled":
		if enabled, err := strconv.ParseBool(value); err == nil {
			caching.Enabled = enabled
		} else {
			return fmt.Errorf("invalid enabled flag: %s", value)
		}
	case "ttl":
		if ttl, err := es.parseDuration(value); err == nil {
			caching.TTL = ttl
		} else {
			return fmt.Errorf("invalid TTL: %s", value)
		}
	case "max.size", "maxSize":
		if maxSize, err := strconv.ParseInt(value, 10, 64); err == nil {
			caching.MaxSize = maxSize
		} else {
			return fmt.Errorf("invalid max size: %s", value)
		}
	case "type":
		caching.Type = value
	default:
		return nil
	}
	return nil
}

// CommandLineSource loads configuration from command line arguments.
type CommandLineSource struct {
	priority int
	args     []string
}

// NewCommandLineSource creates a new command line source.
func NewCommandLineSource(args []string) *CommandLineSource {
	return &CommandLineSource{
		priority: 300, // Highest priority
		args:     args,
	}
}

// NewCommandLineSourceWithPriority creates a new command line source with custom priority.
func NewCommandLineSourceWithPriority(priority int, args []string) *CommandLineSource {
	return &CommandLineSource{
		priority: priority,
		args:     args,
	}
}

// Name returns the name of the command line source.
func (cls *CommandLineSource) Name() string {
	return "command_line"
}

// Priority returns the priority of the command line source.
func (cls *CommandLineSource) Priority() int {
	return cls.priority
}

// Load loads configuration from command line arguments.
func (cls *CommandLineSource) Load(config *Config, paths []string) error {
	// Parse command line arguments
	configArgs := cls.parseConfigArgs()

	// Apply command line overrides
	for key, value := range configArgs {
		es := &EnvironmentSource{} // Reuse environment source logic
		if err := es.setConfigValue(config, key, value); err != nil {
			return fmt.Errorf("failed to set config value from command line %s=%s: %w", key, value, err)
		}
	}

	return nil
}

// parseConfigArgs parses configuration arguments from command line.
func (cls *CommandLineSource) parseConfigArgs() map[string]string {
	configArgs := make(map[string]string)

	for i, arg := range cls.args {
		// Handle --config-key=value format
		if strings.HasPrefix(arg, "--config.") || strings.HasPrefix(arg, "--config-") {
			parts := strings.SplitN(arg, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimPrefix(parts[0], "--config.")
				key = strings.TrimPrefix(key, "--config-")
				key = strings.ReplaceAll(key, "-", ".")
				configArgs[key] = parts[1]
			} else if i+1 < len(cls.args) && !strings.HasPrefix(cls.args[i+1], "--") {
				// Handle --config-key value format
				key := strings.TrimPrefix(arg, "--config.")
				key = strings.TrimPrefix(key, "--config-")
				key = strings.ReplaceAll(key, "-", ".")
				configArgs[key] = cls.args[i+1]
			}
		}

		// Handle -c key=value format
		if arg == "-c" && i+1 < len(cls.args) {
			parts := strings.SplitN(cls.args[i+1], "=", 2)
			if len(parts) == 2 {
				configArgs[parts[0]] = parts[1]
			}
		}
	}

	return configArgs
}

// MultiSource combines multiple configuration sources.
type MultiSource struct {
	sources []Source
}

// NewMultiSource creates a new multi-source configuration loader.
func NewMultiSource(sources ...Source) *MultiSource {
	return &MultiSource{sources: sources}
}

// Name returns the name of the multi-source.
func (ms *MultiSource) Name() string {
	return "multi_source"
}

// Priority returns the highest priority among all sources.
func (ms *MultiSource) Priority() int {
	maxPriority := 0
	for _, source := range ms.sources {
		if priority := source.Priority(); priority > maxPriority {
			maxPriority = priority
		}
	}
	return maxPriority
}

// Load loads configuration from all sources in priority order.
func (ms *MultiSource) Load(config *Config, paths []string) error {
	// Sort sources by priority (lowest first, so higher priority overrides)
	sources := ms.sortSourcesByPriority()

	// Load from each source
	for _, source := range sources {
		if err := source.Load(config, paths); err != nil {
			return fmt.Errorf("failed to load from source %s: %w", source.Name(), err)
		}
	}

	return nil
}

// sortSourcesByPriority sorts sources by priority (ascending).
func (ms *MultiSource) sortSourcesByPriority() []Source {
	sources := make([]Source, len(ms.sources))
	copy(sources, ms.sources)

	// Simple bubble sort by priority
	for i := 0; i < len(sources)-1; i++ {
		for j := 0; j < len(sources)-i-1; j++ {
			if sources[j].Priority() > sources[j+1].Priority() {
				sources[j], sources[j+1] = sources[j+1], sources[j]
			}
		}
	}

	return sources
}

// AddSource adds a source to the multi-source.
func (ms *MultiSource) AddSource(source Source) {
	ms.sources = append(ms.sources, source)
}

// RemoveSource removes a source from the multi-source.
func (ms *MultiSource) RemoveSource(sourceName string) {
	for i, source := range ms.sources {
		if source.Name() == sourceName {
			ms.sources = append(ms.sources[:i], ms.sources[i+1:]...)
			break
		}
	}
}

// GetSources returns all sources.
func (ms *MultiSource) GetSources() []Source {
	return ms.sources
}

// Convenience functions

// CreateDefaultSources creates the default set of configuration sources.
func CreateDefaultSources() []Source {
	return []Source{
		NewFileSource(),
		NewEnvironmentSource(),
	}
}

// CreateAllSources creates all available configuration sources.
func CreateAllSources(args []string) []Source {
	return []Source{
		NewFileSource(),
		NewEnvironmentSource(),
		NewCommandLineSource(args),
	}
}

// LoadFromSources loads configuration from multiple sources.
func LoadFromSources(config *Config, sources []Source, paths []string) error {
	multiSource := NewMultiSource(sources...)
	return multiSource.Load(config, paths)
}

// parseDuration parses a duration from string, supporting both duration format and plain numbers (as seconds).
func (es *EnvironmentSource) parseDuration(value string) (time.Duration, error) {
	// First try parsing as standard duration
	if duration, err := time.ParseDuration(value); err == nil {
		return duration, nil
	}

	// If that fails, try parsing as seconds (plain number)
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	// If both fail, try parsing as float seconds
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", value)
}
