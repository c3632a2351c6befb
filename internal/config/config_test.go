package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source.Dialect != "mysql" {
		t.Errorf("expected source dialect 'mysql', got %s", cfg.Source.Dialect)
	}
	if cfg.Source.Port != 3306 {
		t.Errorf("expected source port 3306, got %d", cfg.Source.Port)
	}
	if cfg.Source.TLS != "preferred" {
		t.Errorf("expected source TLS 'preferred', got %s", cfg.Source.TLS)
	}
	if cfg.Source.MaxConnections != 10 {
		t.Errorf("expected source max_connections 10, got %d", cfg.Source.MaxConnections)
	}

	if cfg.Destination.Port != 3306 {
		t.Errorf("expected destination port 3306, got %d", cfg.Destination.Port)
	}

	if cfg.Processing.Buffer != 1000 {
		t.Errorf("expected buffer 1000, got %d", cfg.Processing.Buffer)
	}
	if cfg.Processing.ChildrenMax != 3 {
		t.Errorf("expected children_max 3, got %d", cfg.Processing.ChildrenMax)
	}
	if cfg.Processing.Logarithmic {
		t.Errorf("expected logarithmic false by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging format 'json', got %s", cfg.Logging.Format)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides("debug", 500, 5, true)

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level override 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Processing.Buffer != 500 {
		t.Errorf("expected buffer override 500, got %d", cfg.Processing.Buffer)
	}
	if cfg.Processing.ChildrenMax != 5 {
		t.Errorf("expected children_max override 5, got %d", cfg.Processing.ChildrenMax)
	}
	if !cfg.Processing.Logarithmic {
		t.Errorf("expected logarithmic override true")
	}
}

func TestApplyOverridesIgnoresZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides("", -1, 0, false)

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level unchanged, got %s", cfg.Logging.Level)
	}
	if cfg.Processing.Buffer != 1000 {
		t.Errorf("expected buffer unchanged, got %d", cfg.Processing.Buffer)
	}
	if cfg.Processing.ChildrenMax != 3 {
		t.Errorf("expected children_max unchanged, got %d", cfg.Processing.ChildrenMax)
	}
}

func TestConstraintsMap(t *testing.T) {
	cfg := &Config{
		Constraints: map[string][]Edge{
			"orders": {
				{
					ReferredTable:      "customers",
					ReferredColumns:    []string{"id"},
					ConstrainedColumns: []string{"customer_id"},
				},
			},
		},
	}

	edges, exists := cfg.Constraints["orders"]
	if !exists {
		t.Fatal("expected 'orders' constraint entry to exist")
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].ReferredTable != "customers" {
		t.Errorf("expected referred_table 'customers', got %s", edges[0].ReferredTable)
	}
}
