package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.tick_interval_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateHealth()...)
	errors = append(errors, c.validateWatch()...)
	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	const minTickSeconds = 1
	const maxTickSeconds = 3600

	if c.Engine.TickIntervalSeconds < minTickSeconds {
		errors = append(errors, ValidationError{
			Field:   "engine.tick_interval_seconds",
			Value:   c.Engine.TickIntervalSeconds,
			Message: fmt.Sprintf("must be at least %d second", minTickSeconds),
		})
	}
	if c.Engine.TickIntervalSeconds > maxTickSeconds {
		errors = append(errors, ValidationError{
			Field:   "engine.tick_interval_seconds",
			Value:   c.Engine.TickIntervalSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxTickSeconds),
		})
	}

	return errors
}

// validateHealth validates the HealthConfig
func (c *Config) validateHealth() []ValidationError {
	var errors []ValidationError

	if c.Health.ActiveTaskThresholdMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "health.active_task_threshold_minutes",
			Value:   c.Health.ActiveTaskThresholdMinutes,
			Message: "must be positive",
		})
	}
	if c.Health.IdleThresholdMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "health.idle_threshold_minutes",
			Value:   c.Health.IdleThresholdMinutes,
			Message: "must be positive",
		})
	}

	// The active-task threshold is the stricter of the two; an idle
	// threshold below it would never fire.
	if c.Health.ActiveTaskThresholdMinutes > 0 && c.Health.IdleThresholdMinutes > 0 &&
		c.Health.IdleThresholdMinutes < c.Health.ActiveTaskThresholdMinutes {
		errors = append(errors, ValidationError{
			Field:   "health.idle_threshold_minutes",
			Value:   c.Health.IdleThresholdMinutes,
			Message: fmt.Sprintf("must be at least active_task_threshold_minutes (%d)", c.Health.ActiveTaskThresholdMinutes),
		})
	}

	if c.Health.StaleTeamThresholdMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "health.stale_team_threshold_minutes",
			Value:   c.Health.StaleTeamThresholdMinutes,
			Message: "must be positive",
		})
	}

	return errors
}

// validateWatch validates the WatchConfig
func (c *Config) validateWatch() []ValidationError {
	var errors []ValidationError

	const minDebounceMs = 10
	const maxDebounceMs = 5000

	if c.Watch.DebounceMs < minDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: fmt.Sprintf("must be at least %dms", minDebounceMs),
		})
	}
	if c.Watch.DebounceMs > maxDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxDebounceMs),
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	required := []struct {
		field string
		value string
	}{
		{"paths.teams_dir", c.Paths.TeamsDir},
		{"paths.archive_db", c.Paths.ArchiveDB},
		{"paths.hooks_dir", c.Paths.HooksDir},
		{"paths.templates_dir", c.Paths.TemplatesDir},
		{"paths.voice_config", c.Paths.VoiceConfig},
	}
	for _, r := range required {
		if r.value == "" {
			errors = append(errors, ValidationError{
				Field:   r.field,
				Value:   r.value,
				Message: "cannot be empty",
			})
			continue
		}
		if strings.ContainsRune(r.value, '\x00') {
			errors = append(errors, ValidationError{
				Field:   r.field,
				Value:   r.value,
				Message: "path contains invalid null character",
			})
		}
		const maxPathLength = 4096
		if len(r.value) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   r.field,
				Value:   r.value,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
