// Package cmd implements the subsetter CLI surface: run, plan, validate,
// and version, all built on cobra/viper as the config loader.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// Flags shared by run and plan: the selection/processing knobs that
// override whatever the config file says.
var (
	cfgFile        string
	logLevel       string
	logarithmic    bool
	buffer         int
	childrenMax    int
	force          []string
	schemas        []string
	tables         []string
	excludeTables  []string
	fullTables     []string
	guaranteeGlobs []string
	importPlugins  []string
	assumeYes      bool
)

var rootCmd = &cobra.Command{
	Use:   "subsetter",
	Short: "Referential database subsetter",
	Long: `subsetter copies a fractional, foreign-key-consistent slice of a
source database into a destination database.

Starting from a target fraction of each table's rows, it walks the
schema's foreign keys to pull in every parent a sampled row depends on,
and opportunistically pulls in children so the subset reads like a
real, navigable slice of the original data rather than a random sample.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"path to a YAML or JSON configuration file (loader picks by extension)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "",
		"override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&logarithmic, "logarithmic", "l", false,
		"dampen the fraction scaling for very large tables")
	rootCmd.PersistentFlags().IntVarP(&buffer, "buffer", "b", -1,
		"rows to accumulate before a batch insert (0 disables buffering)")
	rootCmd.PersistentFlags().IntVarP(&childrenMax, "children", "c", 0,
		"max candidate child rows pulled per admitted parent")
	rootCmd.PersistentFlags().StringSliceVarP(&force, "force", "f", nil,
		"force-admit a row before the main loop, as table:pk (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&schemas, "schema", nil,
		"additional schema to introspect beyond each connection's own database (repeatable)")
	rootCmd.PersistentFlags().StringSliceVarP(&tables, "table", "t", nil,
		"glob pattern selecting tables to include (repeatable)")
	rootCmd.PersistentFlags().StringSliceVarP(&excludeTables, "exclude-table", "T", nil,
		"glob pattern excluding tables (repeatable)")
	rootCmd.PersistentFlags().StringSliceVarP(&fullTables, "full-table", "F", nil,
		"glob pattern for tables copied in full rather than sampled (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&guaranteeGlobs, "guarantee-children", nil,
		"glob pattern for tables whose children are always pulled, regardless of priority (repeatable)")
	rootCmd.PersistentFlags().StringSliceVarP(&importPlugins, "import", "i", nil,
		"name of a registered plugin to load (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false,
		"skip the confirmation prompt")
}

// overrides bundles the persistent flag values into the shape commands
// apply on top of a loaded config.
type overrides struct {
	LogLevel          string
	Logarithmic       bool
	Buffer            int
	ChildrenMax       int
	Force             []string
	Schemas           []string
	Tables            []string
	ExcludeTables     []string
	FullTables        []string
	GuaranteeChildren []string
	ImportPlugins     []string
	AssumeYes         bool
}

func getOverrides() overrides {
	return overrides{
		LogLevel:          logLevel,
		Logarithmic:       logarithmic,
		Buffer:            buffer,
		ChildrenMax:       childrenMax,
		Force:             force,
		Schemas:           schemas,
		Tables:            tables,
		ExcludeTables:     excludeTables,
		FullTables:        fullTables,
		GuaranteeChildren: guaranteeGlobs,
		ImportPlugins:     importPlugins,
		AssumeYes:         assumeYes,
	}
}
