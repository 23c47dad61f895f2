package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation failures, reported
// together so a misconfigured host sees every problem in one pass rather
// than fixing them one at a time.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validLogFormats = map[string]bool{"text": true, "json": true}
var validAnchorProviders = map[AnchorProvider]bool{
	AnchorProviderNone:    true,
	AnchorProviderRFC3161: true,
	AnchorProviderDrand:   true,
}

// ValidateConfig performs comprehensive validation of the configuration,
// accumulating every failure rather than stopping at the first.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.CheckpointInterval < 33 || c.CheckpointInterval > 100 {
		errs = append(errs, ValidationError{
			Field:   "checkpoint_interval",
			Message: fmt.Sprintf("must be between 33 and 100, got %d", c.CheckpointInterval),
		})
	}
	if c.DatabasePath == "" {
		errs = append(errs, ValidationError{Field: "database_path", Message: "must not be empty"})
	}
	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("unknown level %q, want one of debug/info/warn/error", c.LogLevel),
		})
	}
	if c.LogFormat != "" && !validLogFormats[c.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("unknown format %q, want text or json", c.LogFormat),
		})
	}
	if c.AnchorProvider != "" && !validAnchorProviders[c.AnchorProvider] {
		errs = append(errs, ValidationError{
			Field:   "anchor_provider",
			Message: fmt.Sprintf("unknown provider %q", c.AnchorProvider),
		})
	}
	if c.PoswTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "posw_timeout_ms",
			Message: fmt.Sprintf("must not be negative, got %d", c.PoswTimeoutMs),
		})
	}
	if c.SampleCount < 0 {
		errs = append(errs, ValidationError{
			Field:   "sample_count",
			Message: fmt.Sprintf("must not be negative, got %d", c.SampleCount),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
