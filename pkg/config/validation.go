package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Tag     string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	// Generate custom message based on tag
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "min":
		return fmt.Sprintf("%s must be at least", e.Field)
	case "max":
		return fmt.Sprintf("%s must be at most", e.Field)
	case "oneof":
		return fmt.Sprintf("%s must be one of", e.Field)
	case "":
		return fmt.Sprintf("%s failed validation", e.Field)
	default:
		return fmt.Sprintf("%s failed validation", e.Field)
	}
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Validator provides configuration validation.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator.
func NewValidator() (*Validator, error) {
	validate := validator.New()

	// Register custom validation functions
	if err := registerAllValidators(validate); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &Validator{validate: validate}, nil
}

// ValidateConfig validates a configuration struct.
func (v *Validator) ValidateConfig(config *Config) error {
	// Check for nil config first
	if config == nil {
		return ValidationErrors{
			ValidationError{
				Field:   "config",
				Tag:     "required",
				Value:   nil,
				Message: "config is nil",
			},
		}
	}

	err := v.validate.Struct(config)
	if err == nil {
		// Perform additional custom validations if struct validation passes
		if customErrors := v.validateCustomRules(config); len(customErrors) > 0 {
			return customErrors
		}
		return nil
	}

	// Convert validator errors to our custom error format
	var validationErrors ValidationErrors

	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   e.Field(),
				Tag:     e.Tag(),
				Value:   e.Value(),
				Message: getValidationMessage(e),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Message: err.Error(),
		})
	}

	// Perform additional custom validations
	if customErrors := v.validateCustomRules(config); len(customErrors) > 0 {
		validationErrors = append(validationErrors, customErrors...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

// validateCustomRules performs additional custom validation rules.
func (v *Validator) validateCustomRules(config *Config) ValidationErrors {
	var errors ValidationErrors

	// Check for nil config
	if config == nil {
		errors = append(errors, ValidationError{
			Field:   "config",
			Tag:     "required",
			Value:   nil,
			Message: "config cannot be nil",
		})
		return errors
	}

	// Validate search configuration consistency
	if errs := v.validateSearchConfig(&config.Search); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	// Validate logging configuration
	if errs := v.validateLoggingConfig(&config.Logging); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	// Validate execution configuration
	if errs := v.validateExecutionConfig(&config.Execution); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	return errors
}

// validateSearchConfig validates search configuration.
func (v *Validator) validateSearchConfig(config *SearchConfig) ValidationErrors {
	var errors ValidationErrors

	// An inline model and a model path are alternatives, not both
	if config.Model != nil && config.ModelPath != "" {
		errors = append(errors, ValidationError{
			Field:   "Search.Model",
			Message: "model and model_path are mutually exclusive",
		})
	}

	// Each (entity, field) target may be varied at most once
	targets := make(map[string]int)
	for i, variation := range config.Variations {
		target := variation.Entity + "." + variation.Field
		if prev, seen := targets[target]; seen {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("Search.Variations[%d]", i),
				Message: fmt.Sprintf("variation target '%s' duplicates Variations[%d]", target, prev),
			})
		}
		targets[target] = i

		if variation.Min > variation.Max {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("Search.Variations[%d]", i),
				Message: fmt.Sprintf("min %v exceeds max %v for target '%s'", variation.Min, variation.Max, target),
			})
		}
	}

	// Objective names must be unique
	names := make(map[string]int)
	for i, objective := range config.Objectives {
		if prev, seen := names[objective.Name]; seen {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("Search.Objectives[%d].Name", i),
				Message: fmt.Sprintf("objective name '%s' duplicates Objectives[%d]", objective.Name, prev),
			})
		}
		names[objective.Name] = i
	}

	return errors
}

// validateLoggingConfig validates logging configuration.
func (v *Validator) validateLoggingConfig(config *LoggingConfig) ValidationErrors {
	var errors ValidationErrors

	// Validate log outputs
	for i, output := range config.Outputs {
		if errs := v.validateLogOutput(i, &output); len(errs) > 0 {
			errors = append(errors, errs...)
		}
	}

	return errors
}

// validateLogOutput validates a log output configuration.
func (v *Validator) validateLogOutput(index int, output *LogOutputConfig) ValidationErrors {
	var errors ValidationErrors

	// Validate file output
	if output.Type == "file" && output.FilePath == "" {
		errors = append(errors, ValidationError{
			Field:   fmt.Sprintf("Logging.Outputs[%d].FilePath", index),
			Message: "file path is required for file output",
		})
	}

	return errors
}

// validateExecutionConfig validates execution configuration.
func (v *Validator) validateExecutionConfig(config *ExecutionConfig) ValidationErrors {
	var errors ValidationErrors

	// Validate timeout relationships
	if config.DefaultTimeout > 0 && config.Context.DefaultTimeout > 0 {
		if config.Context.DefaultTimeout > config.DefaultTimeout {
			errors = append(errors, ValidationError{
				Field:   "Execution.Context.DefaultTimeout",
				Message: "context timeout should not exceed execution timeout",
			})
		}
	}

	// Validate tracing configuration
	if config.Tracing.Enabled && config.Tracing.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "Execution.Tracing.Dir",
			Message: "trace directory is required when tracing is enabled",
		})
	}

	return errors
}

// registerAllValidators registers all custom validators.
func registerAllValidators(validate *validator.Validate) error {
	validators := map[string]validator.Func{
		"min_duration": validateMinDuration,
		"file_path":    validateFilePath,
		"log_level":    validateLogLevel,
		"output_type":  validateOutputType,
		"log_format":   validateLogFormat,
		"engine_type":  validateEngineType,
		"cache_type":   validateCacheType,
		"direction":    validateDirection,
	}

	for name, fn := range validators {
		if err := validate.RegisterValidation(name, fn); err != nil {
			return fmt.Errorf("failed to register validator '%s': %w", name, err)
		}
	}

	return nil
}

// validateMinDuration validates minimum duration.
func validateMinDuration(fl validator.FieldLevel) bool {
	duration := fl.Field().Interface().(time.Duration)
	minDuration, err := time.ParseDuration(fl.Param())
	if err != nil {
		return false
	}
	return duration >= minDuration
}

// validateFilePath validates file paths. The path must name a file,
// not a directory; both relative and absolute paths are accepted.
func validateFilePath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return true // Allow empty paths
	}
	if strings.HasSuffix(path, string(filepath.Separator)) || strings.HasSuffix(path, "/") {
		return false
	}
	return filepath.Clean(path) != "."
}

// validateLogLevel validates log levels.
func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	for _, valid := range validLevels {
		if level == valid {
			return true
		}
	}
	return false
}

// validateOutputType validates output types.
func validateOutputType(fl validator.FieldLevel) bool {
	outputType := fl.Field().String()
	validTypes := []string{"console", "file"}
	for _, valid := range validTypes {
		if outputType == valid {
			return true
		}
	}
	return false
}

// validateLogFormat validates log output formats.
func validateLogFormat(fl validator.FieldLevel) bool {
	format := fl.Field().String()
	validFormats := []string{"text", "json"}
	for _, valid := range validFormats {
		if format == valid {
			return true
		}
	}
	return false
}

// validateEngineType validates search engine names.
func validateEngineType(fl validator.FieldLevel) bool {
	engine := fl.Field().String()
	validEngines := []string{"nsga2", "weighted"}
	for _, valid := range validEngines {
		if engine == valid {
			return true
		}
	}
	return false
}

// validateCacheType validates cache backend types.
func validateCacheType(fl validator.FieldLevel) bool {
	cacheType := fl.Field().String()
	validTypes := []string{"memory", "sqlite"}
	for _, valid := range validTypes {
		if cacheType == valid {
			return true
		}
	}
	return false
}

// validateDirection validates objective optimization directions.
func validateDirection(fl validator.FieldLevel) bool {
	direction := fl.Field().String()
	validDirections := []string{"minimize", "maximize"}
	for _, valid := range validDirections {
		if direction == valid {
			return true
		}
	}
	return false
}

// getValidationMessage returns a human-readable validation message.
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	case "file_path":
		return fmt.Sprintf("%s must be a valid file path", e.Field())
	case "min_duration":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "log_level":
		return fmt.Sprintf("%s must be one of: DEBUG INFO WARN ERROR FATAL", e.Field())
	case "output_type":
		return fmt.Sprintf("%s must be one of: console file", e.Field())
	case "log_format":
		return fmt.Sprintf("%s must be one of: text json", e.Field())
	case "engine_type":
		return fmt.Sprintf("%s must be one of: nsga2 weighted", e.Field())
	case "cache_type":
		return fmt.Sprintf("%s must be one of: memory sqlite", e.Field())
	case "direction":
		return fmt.Sprintf("%s must be one of: minimize maximize", e.Field())
	default:
		return fmt.Sprintf("%s failed validation", e.Field())
	}
}

// Global validator instance.
var (
	globalValidator *Validator
	validatorOnce   sync.Once
)

// GetValidator returns the global validator instance.
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		var err error
		globalValidator, err = NewValidator()
		if err != nil {
			panic(fmt.Sprintf("failed to create global validator: %v", err))
		}
	})
	return globalValidator
}

// ValidateConfiguration validates a configuration using the global validator.
func ValidateConfiguration(config *Config) error {
	return GetValidator().ValidateConfig(config)
}
