package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Source: DatabaseConfig{
			Dialect:  "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "pass",
			Database: "testdb",
		},
		Destination: DatabaseConfig{
			Dialect:  "mysql",
			Host:     "localhost",
			Port:     3307,
			User:     "root",
			Password: "pass",
			Database: "subsetdb",
		},
		Processing: ProcessingConfig{
			Fraction:    0.25,
			Buffer:      1000,
			ChildrenMax: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestMissingSourceHost(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Host = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing source host")
	}
	if !strings.Contains(err.Error(), "source.host") {
		t.Errorf("expected error to mention 'source.host', got: %v", err)
	}
}

func TestInvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Port = 99999

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for invalid port")
	}
	if !strings.Contains(err.Error(), "source.port") {
		t.Errorf("expected error to mention 'source.port', got: %v", err)
	}
}

func TestInvalidDialect(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Dialect = "oracle"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for invalid dialect")
	}
	if !strings.Contains(err.Error(), "source.dialect") {
		t.Errorf("expected error about source.dialect, got: %v", err)
	}
}

func TestInvalidTLS(t *testing.T) {
	cfg := validConfig()
	cfg.Source.TLS = "invalid_tls"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for invalid TLS")
	}
	if !strings.Contains(err.Error(), "tls") {
		t.Errorf("expected error about tls, got: %v", err)
	}
}

func TestFractionOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Processing.Fraction = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for fraction out of range")
	}
	if !strings.Contains(err.Error(), "processing.fraction") {
		t.Errorf("expected error about processing.fraction, got: %v", err)
	}
}

func TestNegativeFraction(t *testing.T) {
	cfg := validConfig()
	cfg.Processing.Fraction = -0.1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for negative fraction")
	}
	if !strings.Contains(err.Error(), "processing.fraction") {
		t.Errorf("expected error about processing.fraction, got: %v", err)
	}
}

func TestInvalidForceEntry(t *testing.T) {
	cfg := validConfig()
	cfg.Processing.Force = []string{"no-colon-here"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for malformed force entry")
	}
	if !strings.Contains(err.Error(), "processing.force") {
		t.Errorf("expected error about processing.force, got: %v", err)
	}
}

func TestInvalidConstraintColumnLengths(t *testing.T) {
	cfg := validConfig()
	cfg.Constraints = map[string][]Edge{
		"orders": {
			{
				ReferredTable:      "customers",
				ReferredColumns:    []string{"id", "region"},
				ConstrainedColumns: []string{"customer_id"},
			},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for mismatched column lengths")
	}
	if !strings.Contains(err.Error(), "constraints.orders") {
		t.Errorf("expected error about constraints.orders, got: %v", err)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("expected error about logging.level, got: %v", err)
	}
}

func TestMultipleErrors(t *testing.T) {
	cfg := &Config{
		Source:      DatabaseConfig{},
		Destination: DatabaseConfig{},
		Processing:  ProcessingConfig{Fraction: 2.0},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "source.host") {
		t.Error("expected error about source.host")
	}
	if !strings.Contains(errStr, "destination.host") {
		t.Error("expected error about destination.host")
	}
	if !strings.Contains(errStr, "processing.fraction") {
		t.Error("expected error about processing.fraction")
	}
}
