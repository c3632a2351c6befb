// Package engine wires the schema model, sampler, target state, and
// admission/scheduler packages into one runnable subsetting job: build the
// model, size every target table, confirm the plan with the operator, then
// drive the scheduler loop to completion.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/gookit/color"
	"github.com/manifoldco/promptui"
	"github.com/mattn/go-runewidth"

	"github.com/relsubset/subsetter/internal/admission"
	"github.com/relsubset/subsetter/internal/catalog"
	"github.com/relsubset/subsetter/internal/config"
	"github.com/relsubset/subsetter/internal/database"
	"github.com/relsubset/subsetter/internal/dialect"
	"github.com/relsubset/subsetter/internal/logger"
	"github.com/relsubset/subsetter/internal/model"
	"github.com/relsubset/subsetter/internal/plugin"
	"github.com/relsubset/subsetter/internal/sampler"
	"github.com/relsubset/subsetter/internal/scheduler"
	"github.com/relsubset/subsetter/internal/selection"
	"github.com/relsubset/subsetter/internal/target"
)

// Engine owns one end-to-end subsetting run: model construction, sizing,
// the operator confirmation prompt, and the scheduler loop.
type Engine struct {
	cfg *config.Config
	db  *database.Manager
	log *logger.Logger

	fraction   float64
	assumeYes  bool
	pluginReg  *plugin.Registry
	pluginJobs []string

	sourceDialect dialect.Dialect
	destDialect   dialect.Dialect

	sources map[string]*model.TableDescriptor
	targets map[string]*target.Table
}

// New builds an Engine from a loaded configuration and an already-connected
// database manager.
func New(cfg *config.Config, db *database.Manager, log *logger.Logger, fraction float64, assumeYes bool, reg *plugin.Registry, pluginJobs []string) (*Engine, error) {
	srcDialect, err := dialect.For(cfg.Source.Dialect)
	if err != nil {
		return nil, fmt.Errorf("engine: source dialect: %w", err)
	}
	destDialect, err := dialect.For(cfg.Destination.Dialect)
	if err != nil {
		return nil, fmt.Errorf("engine: destination dialect: %w", err)
	}

	return &Engine{
		cfg:           cfg,
		db:            db,
		log:           log,
		fraction:      fraction,
		assumeYes:     assumeYes,
		pluginReg:     reg,
		pluginJobs:    pluginJobs,
		sourceDialect: srcDialect,
		destDialect:   destDialect,
	}, nil
}

// RunLabel implements plugin.Host.
func (e *Engine) RunLabel() string {
	return fmt.Sprintf("%s -> %s @ %.4f", e.cfg.Source.Database, e.cfg.Destination.Database, e.fraction)
}

// BuildModel introspects the source catalog and sizes every selected table
// against the requested fraction, populating e.sources and e.targets. It
// must run before Confirm, PrintPlan or Run.
func (e *Engine) BuildModel(ctx context.Context) error {
	introspector := catalog.New(e.db.Source, e.sourceDialect)
	schemas := catalog.SchemasFor(e.cfg, &e.cfg.Source)

	sources, err := introspector.BuildModel(ctx, schemas, e.cfg.Selection, e.cfg.Constraints)
	if err != nil {
		return fmt.Errorf("engine: build schema model: %w", err)
	}
	e.sources = sources
	e.targets = make(map[string]*target.Table, len(sources))

	for name, desc := range sources {
		count, err := e.countRows(ctx, desc)
		if err != nil {
			return fmt.Errorf("engine: count rows for %s: %w", name, err)
		}
		desc.NRows = count

		fetchAll := selection.IsFullTable(e.cfg.Selection.FullTables, desc.Schema, desc.Name)
		desired := desiredCount(count, e.fraction, e.cfg.Processing.Logarithmic, fetchAll)

		e.targets[name] = target.New(desc, fetchAll, desired)
	}

	return nil
}

func (e *Engine) countRows(ctx context.Context, desc *model.TableDescriptor) (int64, error) {
	if selection.IsFullTable(e.cfg.Selection.FullTables, desc.Schema, desc.Name) {
		return e.sourceDialect.ExactRowCount(ctx, e.db.Source, desc.Schema, desc.Name)
	}
	return e.sourceDialect.EstimateRowCount(ctx, e.db.Source, desc.Schema, desc.Name)
}

// desiredCount applies the target-sizing rule: fetchAll tables copy
// entirely; otherwise the row count is scaled by fraction as
// floor(n_rows * fraction), and --logarithmic replaces that linear scaling
// with floor(n_rows ^ fraction) (equivalently 10^(log10(n_rows)*fraction)),
// which grows far more slowly for very large tables while leaving small
// ones close to their linear size.
func desiredCount(nRows int64, fraction float64, logarithmic bool, fetchAll bool) int64 {
	if fetchAll {
		return nRows
	}
	if nRows <= 0 {
		return 0
	}
	if !logarithmic {
		return int64(math.Floor(float64(nRows) * fraction))
	}
	desired := math.Pow(10, math.Log10(float64(nRows))*fraction)
	if desired < 1 {
		desired = 1
	}
	return int64(math.Floor(desired))
}

// Confirm prints the one-line-per-table plan and, unless the engine was
// constructed with assumeYes, prompts the operator to proceed. Grounded on
// the interactive-confirmation pattern of promptForBool: a two-item Select
// rather than a free-text y/n line, so a stray Enter doesn't default to yes.
func (e *Engine) Confirm() (bool, error) {
	e.PrintPlan()

	if e.assumeYes {
		return true, nil
	}

	prompt := promptui.Select{
		Label:     "Proceed with subsetting",
		Items:     []string{"No", "Yes"},
		CursorPos: 0,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return false, fmt.Errorf("engine: confirmation prompt: %w", err)
	}
	return idx == 1, nil
}

// PrintPlan prints one line per target table showing its estimated source
// row count and desired post-subsetting count.
func (e *Engine) PrintPlan() {
	names := make([]string, 0, len(e.targets))
	for name := range e.targets {
		names = append(names, name)
	}
	sort.Strings(names)

	color.Bold.Println("Subsetting plan")
	color.Gray.Printf("  %s -> %s  (fraction %.4f)\n\n", e.cfg.Source.Database, e.cfg.Destination.Database, e.fraction)

	width := 0
	for _, n := range names {
		if w := runewidth.StringWidth(n); w > width {
			width = w
		}
	}

	for _, name := range names {
		tgt := e.targets[name]
		pad := width - runewidth.StringWidth(name)
		label := name
		if tgt.FetchAll {
			label = color.Cyan.Sprintf("%s (full)", name)
		}
		fmt.Printf("  %s%*s  %10d rows -> %10d desired\n", label, pad, "", tgt.NRows, tgt.NRowsDesired)
	}
	fmt.Println()
}

// Run builds the admission/scheduler dependency graph from the already
// sized model and drives the main loop to completion.
func (e *Engine) Run(ctx context.Context) error {
	listeners, err := e.pluginReg.Build(e, e.pluginJobs)
	if err != nil {
		return fmt.Errorf("engine: build plugins: %w", err)
	}

	deps := &admission.Deps{
		SourceDB:          e.db.Source,
		DestDB:            e.db.Destination,
		SourceDialect:     e.sourceDialect,
		DestDialect:       e.destDialect,
		Targets:           e.targets,
		Buffer:            e.cfg.Processing.Buffer,
		ChildrenMax:       e.cfg.Processing.ChildrenMax,
		GuaranteeChildren: e.cfg.Selection.GuaranteeChildren,
		Listeners:         listeners,
		Log:               e.log.WithPhase("admission"),
	}

	samplers := make(map[string]*sampler.Sampler, len(e.sources))
	for name, desc := range e.sources {
		tgt := e.targets[name]
		samplers[name] = sampler.New(e.db.Source, e.sourceDialect, desc.Schema, desc.Name,
			columnsOf(desc), desc.NRows, tgt.NRowsDesired)
	}

	sched := &scheduler.Scheduler{
		Deps:              deps,
		Samplers:          samplers,
		Sources:           e.sources,
		Force:             e.cfg.Processing.Force,
		GuaranteeChildren: e.cfg.Selection.GuaranteeChildren,
		Log:               e.log.WithPhase("scheduler"),
	}

	return sched.Run(ctx)
}

func columnsOf(desc *model.TableDescriptor) []string {
	return desc.Columns
}
