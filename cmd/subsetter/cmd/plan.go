package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relsubset/subsetter/internal/config"
	"github.com/relsubset/subsetter/internal/database"
	"github.com/relsubset/subsetter/internal/engine"
	"github.com/relsubset/subsetter/internal/logger"
	"github.com/relsubset/subsetter/internal/plugin"
)

var planCmd = &cobra.Command{
	Use:   "plan <source> <dest> <fraction>",
	Short: "Show the subsetting plan without writing anything",
	Long: `Plan connects to source only, builds the schema model, estimates every
selected table's row count, and prints the same per-table plan "run" shows
before its confirmation prompt, without ever touching dest.`,
	Args: cobra.ExactArgs(3),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	o := getOverrides()
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	fraction, err := parseFraction(args[2])
	if err != nil {
		return err
	}

	if src, err := config.ParseConnectionString(args[0]); err == nil {
		cfg.Source = src
	} else {
		return fmt.Errorf("source: %w", err)
	}
	if dst, err := config.ParseConnectionString(args[1]); err == nil {
		cfg.Destination = dst
	} else {
		return fmt.Errorf("dest: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	dbManager := database.NewManager(cfg)
	ctx := context.Background()

	if err := dbManager.ConnectSource(ctx); err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer dbManager.Close()

	eng, err := engine.New(cfg, dbManager, log, fraction, true, plugin.NewRegistry(), nil)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	if err := eng.BuildModel(ctx); err != nil {
		return fmt.Errorf("failed to build schema model: %w", err)
	}

	eng.PrintPlan()
	return nil
}
