package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values,
// failing fast at startup on things like an out-of-range fraction or an
// invalid log level.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateDatabase("source", &c.Source); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateDatabase("destination", &c.Destination); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateProcessing(); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateConstraints(); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{Field: prefix + ".host", Message: "host is required"})
	}
	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{Field: prefix + ".port", Message: "port must be between 1 and 65535"})
	}
	if db.User == "" {
		errors = append(errors, ValidationError{Field: prefix + ".user", Message: "user is required"})
	}
	if db.Database == "" {
		errors = append(errors, ValidationError{Field: prefix + ".database", Message: "database name is required"})
	}

	validDialects := map[string]bool{"mysql": true, "postgres": true}
	if !validDialects[db.Dialect] {
		errors = append(errors, ValidationError{Field: prefix + ".dialect", Message: "dialect must be 'mysql' or 'postgres'"})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{Field: prefix + ".tls", Message: "tls must be 'disable', 'preferred', or 'required'"})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{Field: prefix + ".max_connections", Message: "max_connections cannot be negative"})
	}
	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{Field: prefix + ".max_idle_connections", Message: "max_idle_connections cannot be negative"})
	}

	return errors
}

// validateProcessing enforces the fraction range and sanity-checks the
// buffer/children knobs.
func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.Fraction < 0 || c.Processing.Fraction > 1 {
		errors = append(errors, ValidationError{
			Field:   "processing.fraction",
			Message: "fraction must be in [0, 1]",
		})
	}
	if c.Processing.Buffer < 0 {
		errors = append(errors, ValidationError{Field: "processing.buffer", Message: "buffer cannot be negative"})
	}
	if c.Processing.ChildrenMax < 0 {
		errors = append(errors, ValidationError{Field: "processing.children_max", Message: "children_max cannot be negative"})
	}
	for i, f := range c.Processing.Force {
		if !strings.Contains(f, ":") {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("processing.force[%d]", i),
				Message: "force entry must be in 'table:pk' form",
			})
		}
	}

	return errors
}

// validateConstraints checks that every declared pseudo-FK edge has
// matching column-list lengths.
func (c *Config) validateConstraints() ValidationErrors {
	var errors ValidationErrors

	for table, edges := range c.Constraints {
		for i, e := range edges {
			prefix := fmt.Sprintf("constraints.%s[%d]", table, i)
			if e.ReferredTable == "" {
				errors = append(errors, ValidationError{Field: prefix + ".referred_table", Message: "referred_table is required"})
			}
			if len(e.ReferredColumns) == 0 {
				errors = append(errors, ValidationError{Field: prefix + ".referred_columns", Message: "referred_columns cannot be empty"})
			}
			if len(e.ReferredColumns) != len(e.ConstrainedColumns) {
				errors = append(errors, ValidationError{
					Field:   prefix,
					Message: "referred_columns and constrained_columns must have the same length",
				})
			}
		}
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{Field: "logging.level", Message: "level must be 'debug', 'info', 'warn', or 'error'"})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{Field: "logging.format", Message: "format must be 'json' or 'text'"})
	}

	return errors
}

// ValidatePattern reports whether a glob pattern used in SelectionConfig is
// syntactically valid (shell-glob semantics).
func ValidatePattern(pattern string) error {
	_, err := filepath.Match(pattern, "")
	return err
}
