package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/gridwright/evosize/pkg/cache"
	"github.com/gridwright/evosize/pkg/config"
	"github.com/gridwright/evosize/pkg/core"
	"github.com/gridwright/evosize/pkg/logging"
	"github.com/gridwright/evosize/pkg/optimizers"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file; discovered near the working directory when omitted")
	engineName := flag.String("engine", "", "Search engine to run (nsga2, weighted); overrides the config")
	logLevel := flag.String("log-level", "", "Log severity (DEBUG, INFO, WARN, ERROR); overrides the config")
	seed := flag.Int64("seed", 0, "Random seed for the selected engine; zero keeps the configured seed")
	workers := flag.Int("workers", 0, "Concurrent simulator invocations; zero keeps the configured value")
	tracePath := flag.String("trace", "", "Write a JSONL run trace to this file")
	flightRecorder := flag.Bool("flight-recorder", false, "Keep an in-memory execution trace and dump it when the run fails")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evosize: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	severity := logging.ParseSeverity(level)

	logger, closeLogs, err := buildLogger(cfg.Logging, severity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evosize: %v\n", err)
		os.Exit(1)
	}
	logging.SetLogger(logger)

	ctx := logging.WithRunID(context.Background(), uuid.New().String()[:8])

	if len(cfg.Search.Variations) == 0 {
		cfg.Search = demoSearchConfig()
		logger.Info(ctx, "No search space configured, sizing the bundled demo plant")
	}
	if *workers > 0 {
		cfg.Execution.MaxConcurrency = *workers
	}
	name := *engineName
	if name == "" {
		name = cfg.Engines.Default
	}

	model, err := buildModel(cfg.Search)
	if err != nil {
		logger.Error(ctx, "Failed to build the base model: %v", err)
		closeLogs()
		os.Exit(1)
	}
	variations := buildVariations(cfg.Search.Variations)
	objectives := buildObjectives(cfg.Search.Objectives)

	spaceID := cache.SpaceDigest(model, variations, objectives, cfg.Search.IgnoreZero)
	store := cache.OpenEvaluationStore(&cfg.Caching, spaceID)

	evaluator, err := optimizers.NewEvaluator(demoSimulator{}, objectives,
		optimizers.WithEvaluationStore(store),
		optimizers.WithEvaluatorWorkers(cfg.Execution.MaxConcurrency),
		optimizers.WithIgnoreZero(cfg.Search.IgnoreZero),
		optimizers.WithKeepPayloads(cfg.Search.KeepPayloads))
	if err != nil {
		logger.Error(ctx, "Failed to build the evaluator: %v", err)
		closeLogs()
		os.Exit(1)
	}

	registry := core.NewEngineRegistry()
	optimizers.RegisterDefaults(registry, evaluator,
		nsga2Config(cfg.Engines.NSGAII, *seed),
		weightedConfig(cfg.Engines.Weighted, *seed))

	engine, err := registry.Create(name)
	if err != nil {
		logger.Error(ctx, "Failed to create engine %q: %v", name, err)
		closeLogs()
		os.Exit(1)
	}
	if severity > logging.INFO {
		// The per-generation statistics log is hidden at this level, so
		// keep a minimal counter on stderr instead.
		if target, ok := engine.(interface{ SetProgressReporter(core.ProgressReporter) }); ok {
			target.SetProgressReporter(tickerReporter{})
		}
	}

	path := *tracePath
	if path == "" && cfg.Execution.Tracing.Enabled {
		searchName := cfg.Search.Name
		if searchName == "" {
			searchName = "search"
		}
		path = filepath.Join(cfg.Execution.Tracing.Dir,
			fmt.Sprintf("%s-%s.jsonl", searchName, time.Now().Format("20060102-150405")))
	}
	var session *logging.TraceSession
	if path != "" {
		session, err = logging.NewTraceSession(path,
			logging.WithTraceRotation(cfg.Execution.Tracing.MaxFileSize, cfg.Execution.Tracing.MaxFiles))
		if err != nil {
			logger.Error(ctx, "Failed to open trace file: %v", err)
			closeLogs()
			os.Exit(1)
		}
		session.SetEvaluationEvents(cfg.Execution.Tracing.Evaluations)
		ctx = logging.WithTraceSession(ctx, session)
		logger.Info(ctx, "Recording run trace to %s", path)
	}

	if *flightRecorder {
		logging.InitGlobalFlightRecorder()
		if err := logging.GlobalFlightRecorder().Start(); err != nil {
			logger.Warn(ctx, "Flight recorder unavailable: %v", err)
		} else {
			defer logging.GlobalFlightRecorder().Stop()
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithTimeout(ctx, cfg.Execution.DefaultTimeout)
	defer cancel()

	logger.Info(runCtx, "Starting %s search %q over %d variation(s)", name, cfg.Search.Name, len(variations))
	start := time.Now()
	result, err := engine.Run(runCtx, model, variations)
	if err != nil {
		if session != nil {
			session.EmitError("run_failed", err.Error(), false)
		}
		if fr := logging.GlobalFlightRecorder(); fr != nil && fr.Enabled() {
			fr.Snapshot("evosize-failure.trace")
			logger.Info(runCtx, "Flight recorder snapshot written to evosize-failure.trace")
		}
		logger.Error(runCtx, "Search failed: %v", err)
		if session != nil {
			session.Close()
		}
		closeLogs()
		os.Exit(1)
	}

	stats := store.Stats()
	logger.Info(runCtx, "Search %s after %d generation(s) in %s (cache: %d hits, %d misses)",
		result.Reason, result.Generations, time.Since(start).Round(time.Millisecond),
		stats.Hits, stats.Misses)

	printResult(os.Stdout, result, variations, objectives)

	if session != nil {
		session.Close()
	}
	closeLogs()
}

// loadConfig loads an explicit config file, or falls back to discovery and
// then to the built-in defaults when no file exists nearby.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if discovered, err := config.DiscoverFirstConfigFile(); err == nil {
		return config.Load(discovered)
	}
	return config.GetDefaultConfig(), nil
}

// buildLogger assembles the logger from the logging section: console and
// file outputs plus the default fields attached to every entry. The second
// return value closes the file outputs.
func buildLogger(cfg config.LoggingConfig, severity logging.Severity) (*logging.Logger, func(), error) {
	var outputs []logging.Output
	for _, out := range cfg.Outputs {
		switch out.Type {
		case "file":
			opts := []logging.FileOutputOption{logging.WithJSONFormat(out.Format == "json")}
			if out.Rotation.MaxSize > 0 {
				opts = append(opts, logging.WithFileRotation(out.Rotation.MaxSize, out.Rotation.MaxFiles))
			}
			fileOutput, err := logging.NewFileOutput(out.FilePath, opts...)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to open log file: %w", err)
			}
			outputs = append(outputs, fileOutput)
		default:
			outputs = append(outputs, logging.NewConsoleOutput(true, logging.WithColor(out.Colors)))
		}
	}
	if len(outputs) == 0 {
		outputs = append(outputs, logging.NewConsoleOutput(true, logging.WithColor(true)))
	}

	logger := logging.NewLogger(logging.Config{
		Severity:      severity,
		Outputs:       outputs,
		SampleRate:    cfg.SampleRate,
		DefaultFields: cfg.DefaultFields,
	})
	closer := func() {
		for _, out := range outputs {
			out.Close()
		}
	}
	return logger, closer, nil
}

// buildModel resolves the base model from the inline mapping or a model
// file. Engines mutate their own copies, so sharing the loaded model between
// runs is safe.
func buildModel(cfg config.SearchConfig) (core.Model, error) {
	raw := cfg.Model
	if cfg.ModelPath != "" {
		data, err := os.ReadFile(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read model file %s: %w", cfg.ModelPath, err)
		}
		raw = nil
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse model file %s: %w", cfg.ModelPath, err)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("the config defines no base model (set model or model_path)")
	}

	model := make(core.Model, len(raw))
	for entityName, fields := range raw {
		entity := make(core.Entity, len(fields))
		for field, value := range fields {
			entity[field] = value
		}
		model[entityName] = entity
	}
	return model, nil
}

func buildVariations(cfgs []config.VariationConfig) []core.AttributeVariation {
	variations := make([]core.AttributeVariation, 0, len(cfgs))
	for _, vc := range cfgs {
		variations = append(variations, core.AttributeVariation{
			TargetEntity: vc.Entity,
			TargetField:  vc.Field,
			ValMin:       vc.Min,
			ValMax:       vc.Max,
			ValStep:      vc.Step,
		})
	}
	return variations
}

// buildObjectives maps objective configs onto the signed maximization
// convention the engines use: minimized objectives carry sign -1, and an
// omitted direction means minimize. Weights default to 1.
func buildObjectives(cfgs []config.ObjectiveConfig) []core.ObjectiveSpec {
	objectives := make([]core.ObjectiveSpec, 0, len(cfgs))
	for _, oc := range cfgs {
		sign := -1.0
		if oc.Direction == "maximize" {
			sign = 1.0
		}
		weight := oc.Weight
		if weight == 0 {
			weight = 1
		}
		objectives = append(objectives, core.ObjectiveSpec{
			Name:   oc.Name,
			Reduce: core.SumField(oc.Field),
			Sign:   sign,
			Weight: weight,
		})
	}
	return objectives
}

func nsga2Config(cfg config.NSGAIIEngineConfig, seedOverride int64) optimizers.NSGAIIConfig {
	out := optimizers.NSGAIIConfig{
		PopulationSize:      cfg.PopulationSize,
		Generations:         cfg.Generations,
		ElitismRate:         cfg.ElitismRate,
		CrossoverRate:       cfg.CrossoverRate,
		GeneSwapProbability: cfg.GeneSwapProbability,
		RetryFactor:         cfg.RetryFactor,
		PostProcessing:      cfg.PostProcessing,
		Seed:                cfg.Seed,
	}
	if seedOverride != 0 {
		out.Seed = seedOverride
	}
	return out
}

func weightedConfig(cfg config.WeightedEngineConfig, seedOverride int64) optimizers.WeightedConfig {
	out := optimizers.WeightedConfig{
		PopulationSize: cfg.PopulationSize,
		Generations:    cfg.Generations,
		ElitismRate:    cfg.ElitismRate,
		CrossoverRate:  cfg.CrossoverRate,
		MutationRate:   cfg.MutationRate,
		RetryFactor:    cfg.RetryFactor,
		Seed:           cfg.Seed,
	}
	if seedOverride != 0 {
		out.Seed = seedOverride
	}
	return out
}

// tickerReporter keeps a minimal generation counter on stderr for runs whose
// log level hides the per-generation statistics.
type tickerReporter struct{}

func (tickerReporter) Report(stage string, processed, total int) {
	fmt.Fprintf(os.Stderr, "%s %d/%d\n", stage, processed, total)
}
