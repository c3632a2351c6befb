// Package admission implements the recursive row-admission procedure:
// given a source row destined for a target table, it ensures every
// parent the row depends on already exists in the target, buffers or
// inserts the row itself, and opportunistically queues candidate child
// rows.
//
// The parent walk is expressed as an explicit work-stack rather than
// native recursion, to avoid deep call chains on long FK dependency
// paths. Cycles in the foreign-key graph are not detected; a cyclic
// schema loops forever here.
package admission

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/relsubset/subsetter/internal/dialect"
	"github.com/relsubset/subsetter/internal/logger"
	"github.com/relsubset/subsetter/internal/model"
	"github.com/relsubset/subsetter/internal/plugin"
	"github.com/relsubset/subsetter/internal/target"
)

// DefaultChildrenMax is the per-admission child-pull cap when the caller
// doesn't override it via `-c/--children`.
const DefaultChildrenMax = 3

// Deps bundles everything the admission engine needs but does not own:
// both database connections, the live target-table map, and the
// observer listeners to notify on commit.
type Deps struct {
	SourceDB      *sql.DB
	DestDB        *sql.DB
	SourceDialect dialect.Dialect
	DestDialect   dialect.Dialect

	// Targets is keyed by "schema.table" and shared with the scheduler;
	// admission only ever adds to a table's Pending/Done/Required/
	// Requested state, never removes tables from the map.
	Targets map[string]*target.Table

	Buffer            int
	ChildrenMax       int
	GuaranteeChildren []string // glob patterns, see scheduler's guarantee pass

	Listeners []plugin.Listener
	Log       *logger.Logger
}

type edgeSpec struct {
	fk         model.ForeignKey
	constraint bool
}

// frame is one stack entry of the parent-walk work-stack: a row on its way
// into tgt, paused partway through its FK/constraint list while a parent
// it depends on is admitted first.
type frame struct {
	row         *model.Row
	tgt         *target.Table
	prioritized bool

	computed bool
	pk       model.PKTuple

	edges   []edgeSpec
	edgeIdx int
}

func newFrame(row *model.Row, tgt *target.Table, prioritized bool) *frame {
	edges := make([]edgeSpec, 0, len(tgt.Desc.FKs)+len(tgt.Desc.Constraints))
	for _, fk := range tgt.Desc.FKs {
		edges = append(edges, edgeSpec{fk: fk})
	}
	for _, c := range tgt.Desc.Constraints {
		edges = append(edges, edgeSpec{fk: c, constraint: true})
	}
	return &frame{row: row, tgt: tgt, prioritized: prioritized, edges: edges}
}

func qname(schema, table string) string { return schema + "." + table }

// CreateRowIn is the admission engine's entry point. It admits row into
// target, recursively resolving any parent rows the
// target's foreign keys and constraints demand.
func CreateRowIn(ctx context.Context, deps *Deps, row *model.Row, tgt *target.Table, prioritized bool) error {
	stack := []*frame{newFrame(row, tgt, prioritized)}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if !top.computed {
			top.pk = model.ComputePK(top.row, top.tgt.Desc.PK)
			top.computed = true
			if top.tgt.Exists(top.pk) && !top.prioritized {
				stack = stack[:len(stack)-1]
				continue
			}
		}

		if top.edgeIdx < len(top.edges) {
			edge := top.edges[top.edgeIdx]
			fk := edge.fk

			if top.row.AllNil(fk.ConstrainedColumns) {
				top.edgeIdx++
				continue
			}

			parentTgt, ok := deps.Targets[qname(fk.ReferredSchema, fk.ReferredTable)]
			if !ok {
				top.edgeIdx++
				continue
			}

			parentPK := parentPKFromRow(top.row, fk.ConstrainedColumns)
			if parentTgt.Exists(parentPK) {
				top.edgeIdx++
				continue
			}

			parentRow, err := fetchRowByColumns(ctx, deps.SourceDB, deps.SourceDialect,
				parentTgt.Desc.Schema, parentTgt.Desc.Name, fk.ReferredColumns, filterValues(top.row, fk.ConstrainedColumns))
			if err != nil {
				return fmt.Errorf("admission: fetch parent %s: %w", parentTgt.Desc.QualifiedName(), err)
			}
			if parentRow == nil {
				if edge.constraint {
					// Pseudo-FKs are not DB-enforced; a missing parent in
					// the source is skipped silently.
					top.edgeIdx++
					continue
				}
				return fmt.Errorf("admission: parent row absent in source for %s (data integrity violation)", parentTgt.Desc.QualifiedName())
			}

			stack = append(stack, newFrame(parentRow, parentTgt, false))
			continue
		}

		if err := commit(ctx, deps, top); err != nil {
			return err
		}
		if err := pullChildren(ctx, deps, top); err != nil {
			return err
		}
		stack = stack[:len(stack)-1]
	}

	return nil
}

// parentPKFromRow builds the parent's PK tuple directly from the child
// row's constrained-column values, which line up positionally with the
// parent's referred (and, by FK construction, primary-key) columns.
func parentPKFromRow(row *model.Row, constrainedColumns []string) model.PKTuple {
	r := model.NewRow()
	for _, c := range constrainedColumns {
		v, _ := row.Get(c)
		r.Set(c, v)
	}
	return model.ComputePK(r, constrainedColumns)
}

func filterValues(row *model.Row, columns []string) []any {
	vals := make([]any, len(columns))
	for i, c := range columns {
		v, _ := row.Get(c)
		vals[i] = v
	}
	return vals
}

// fetchRowByColumns looks up a single row in table by equality on the
// given columns, skipping any column whose filter value is NULL (a NULL
// foreign-key column disables its own equality but the lookup still
// proceeds on the remaining columns).
func fetchRowByColumns(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string, columns []string, values []any) (*model.Row, error) {
	var conds []string
	var args []any
	for i, c := range columns {
		if values[i] == nil {
			continue
		}
		conds = append(conds, fmt.Sprintf("%s = %s", d.QuoteIdentifier(c), d.Placeholder(len(args)+1)))
		args = append(args, values[i])
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT * FROM %s.%s WHERE %s LIMIT 1",
		d.QuoteIdentifier(schema), d.QuoteIdentifier(table), strings.Join(conds, " AND "))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOne(rows)
}

func scanOne(rows *sql.Rows) (*model.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, rows.Err()
	}

	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := model.NewRow()
	for i, c := range cols {
		row.Set(c, dest[i])
	}
	return row, nil
}

// commit increments the target's row count and either inserts row
// immediately (buffer disabled) or places it in Pending, then notifies
// every registered listener.
func commit(ctx context.Context, deps *Deps, f *frame) error {
	if deps.Buffer == 0 {
		if err := insertRow(ctx, deps.DestDB, deps.DestDialect, f.tgt.Desc.Schema, f.tgt.Desc.Name, f.row); err != nil {
			return fmt.Errorf("admission: insert %s: %w", f.tgt.Desc.QualifiedName(), err)
		}
	}
	f.tgt.Commit(f.pk, f.row, deps.Buffer)

	for _, l := range deps.Listeners {
		l.OnRowAdded(plugin.RowAddedEvent{
			Schema:      f.tgt.Desc.Schema,
			Table:       f.tgt.Desc.Name,
			Row:         f.row,
			Prioritized: f.prioritized,
		})
	}
	return nil
}

func insertRow(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string, row *model.Row) error {
	cols := row.Columns()
	quotedCols := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quotedCols[i] = d.QuoteIdentifier(c)
		placeholders[i] = d.Placeholder(i + 1)
		v, _ := row.Get(c)
		args[i] = v
	}

	query := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		d.QuoteIdentifier(schema), d.QuoteIdentifier(table),
		strings.Join(quotedCols, ", "), strings.Join(placeholders, ", "))

	_, err := db.ExecContext(ctx, query, args...)
	return err
}

// pullChildren queries each child source table for candidate rows
// referencing the just-admitted row, and enqueues them on the child's
// target state.
func pullChildren(ctx context.Context, deps *Deps, f *frame) error {
	for _, child := range f.tgt.Desc.ChildFKs {
		childTgt, ok := deps.Targets[qname(child.ConstrainedSchema, child.ConstrainedTable)]
		if !ok {
			continue
		}

		limit := deps.ChildrenMax
		if limit <= 0 {
			limit = DefaultChildrenMax
		}

		rows, err := fetchChildCandidates(ctx, deps.SourceDB, deps.SourceDialect,
			child.ConstrainedSchema, child.ConstrainedTable,
			child.ConstrainedColumns, filterValues(f.row, child.ReferredColumns),
			limit, f.prioritized)
		if err != nil {
			return fmt.Errorf("admission: pull children of %s into %s: %w",
				f.tgt.Desc.QualifiedName(), childTgt.Desc.QualifiedName(), err)
		}

		if f.prioritized {
			for _, r := range rows {
				childTgt.PushRequired(r)
			}
			continue
		}

		for i, r := range rows {
			if i == 0 {
				childTgt.PushRequestedFront(r)
			} else {
				childTgt.PushRequestedBack(r)
			}
		}
	}
	return nil
}

func fetchChildCandidates(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string, columns []string, values []any, limit int, unlimited bool) ([]*model.Row, error) {
	var conds []string
	var args []any
	for i, c := range columns {
		if values[i] == nil {
			continue
		}
		conds = append(conds, fmt.Sprintf("%s = %s", d.QuoteIdentifier(c), d.Placeholder(len(args)+1)))
		args = append(args, values[i])
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT * FROM %s.%s WHERE %s",
		d.QuoteIdentifier(schema), d.QuoteIdentifier(table), strings.Join(conds, " AND "))
	if !unlimited {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []*model.Row
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := model.NewRow()
		for i, c := range cols {
			row.Set(c, dest[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
