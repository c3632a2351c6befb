package cmd

import (
	"fmt"

	"github.com/relsubset/subsetter/internal/config"
)

// loadConfig reads the config file (if given) and layers the CLI flag
// overrides on top of it. A missing --config is valid: the defaults plus
// flags must be enough to run.
func loadConfig(o overrides) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	cfg.ApplyOverrides(o.LogLevel, o.Buffer, o.ChildrenMax, o.Logarithmic)

	cfg.Selection.Schemas = append(cfg.Selection.Schemas, o.Schemas...)
	cfg.Selection.Tables = append(cfg.Selection.Tables, o.Tables...)
	cfg.Selection.ExcludeTables = append(cfg.Selection.ExcludeTables, o.ExcludeTables...)
	cfg.Selection.FullTables = append(cfg.Selection.FullTables, o.FullTables...)
	cfg.Selection.GuaranteeChildren = append(cfg.Selection.GuaranteeChildren, o.GuaranteeChildren...)
	cfg.Processing.Force = append(cfg.Processing.Force, o.Force...)

	return cfg, nil
}
