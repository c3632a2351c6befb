// Package scheduler drives the main subsetting loop: repeatedly pick the
// least-complete target table, pull its next row, admit it, and flush the
// write buffer when it grows too large.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/relsubset/subsetter/internal/admission"
	"github.com/relsubset/subsetter/internal/dialect"
	"github.com/relsubset/subsetter/internal/logger"
	"github.com/relsubset/subsetter/internal/model"
	"github.com/relsubset/subsetter/internal/sampler"
	"github.com/relsubset/subsetter/internal/scorer"
	"github.com/relsubset/subsetter/internal/selection"
	"github.com/relsubset/subsetter/internal/target"
)

// terminationScore is the "all tables sufficiently full" threshold:
// once the least-complete table's score clears it, the run
// stops even though individual tables may still be short of their exact
// desired count (the engine never promises exact counts).
const terminationScore = 0.97

// Scheduler owns the main admission loop. It does not own the target
// tables or samplers: those are constructed once by the engine and
// shared with Deps so admission and scheduler see the same state.
type Scheduler struct {
	Deps     *admission.Deps
	Samplers map[string]*sampler.Sampler // keyed by "schema.table"
	Sources  map[string]*model.TableDescriptor

	Force             []string // "table:pk", single-PK tables only
	GuaranteeChildren []string // glob patterns, see runGuaranteedChildren

	Log *logger.Logger
}

// Run seeds forced rows, then repeats the pick/pull/admit/flush cycle
// until no target table has anything left to gain from another row.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.seedForced(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return s.flushAll(ctx)
		default:
		}

		name, tgt, ok := s.pickLeastComplete()
		if !ok {
			break
		}
		if scorer.Score(tgt) > terminationScore {
			break
		}

		row, prioritized, ok := tgt.NextRow()
		if !ok {
			var err error
			row, ok, err = s.Samplers[name].Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			prioritized = false
		}

		if err := admission.CreateRowIn(ctx, s.Deps, row, tgt, prioritized); err != nil {
			return fmt.Errorf("scheduler: admit row into %s: %w", name, err)
		}
		if err := s.runGuaranteedChildren(ctx, name, tgt, row); err != nil {
			return err
		}

		if s.Deps.Buffer > 0 && s.pendingTotal() > s.Deps.Buffer {
			if err := s.flushAll(ctx); err != nil {
				return err
			}
		}
	}

	return s.flushAll(ctx)
}

// pickLeastComplete sorts target tables by completeness score, ascending,
// and returns the first whose source table still has rows to contribute.
func (s *Scheduler) pickLeastComplete() (string, *target.Table, bool) {
	type candidate struct {
		name  string
		tgt   *target.Table
		score float64
	}

	var candidates []candidate
	for name, tgt := range s.Deps.Targets {
		src, ok := s.Sources[name]
		if !ok || src.NRows <= 0 {
			continue
		}
		candidates = append(candidates, candidate{name: name, tgt: tgt, score: scorer.Score(tgt)})
	}
	if len(candidates) == 0 {
		return "", nil, false
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })
	return candidates[0].name, candidates[0].tgt, true
}

func (s *Scheduler) pendingTotal() int {
	total := 0
	for _, tgt := range s.Deps.Targets {
		total += len(tgt.Pending)
	}
	return total
}

// seedForced admits the user's --force table:pk rows before the main loop,
// each with prioritized=true. A miss (bad table name, multi-column PK, or
// the row not existing in source) is a warning, not fatal.
func (s *Scheduler) seedForced(ctx context.Context) error {
	for _, spec := range s.Force {
		table, pkValue, ok := strings.Cut(spec, ":")
		if !ok {
			s.Log.Warnf("force entry %q is not in 'table:pk' form, skipping", spec)
			continue
		}

		name, tgt, src, ok := s.resolveByBareName(table)
		if !ok {
			s.Log.Warnf("force: table %q not found, skipping", table)
			continue
		}
		if len(src.PK) != 1 {
			s.Log.Warnf("force: table %q does not have a single-column primary key, skipping", table)
			continue
		}

		row, err := s.fetchByPK(ctx, src, pkValue)
		if err != nil {
			return fmt.Errorf("scheduler: force-seed %s: %w", name, err)
		}
		if row == nil {
			s.Log.Warnf("force: %s:%s not found in source, skipping", table, pkValue)
			continue
		}

		if err := admission.CreateRowIn(ctx, s.Deps, row, tgt, true); err != nil {
			return fmt.Errorf("scheduler: force-seed %s: %w", name, err)
		}
	}
	return nil
}

func (s *Scheduler) resolveByBareName(name string) (string, *target.Table, *model.TableDescriptor, bool) {
	for qname, src := range s.Sources {
		if src.Name == name || qname == name {
			return qname, s.Deps.Targets[qname], src, true
		}
	}
	return "", nil, nil, false
}

func (s *Scheduler) fetchByPK(ctx context.Context, src *model.TableDescriptor, pkValue string) (*model.Row, error) {
	d := s.Deps.SourceDialect
	query := fmt.Sprintf("SELECT * FROM %s.%s WHERE %s = %s LIMIT 1",
		d.QuoteIdentifier(src.Schema), d.QuoteIdentifier(src.Name),
		d.QuoteIdentifier(src.PK[0]), d.Placeholder(1))

	rows, err := s.Deps.SourceDB.QueryContext(ctx, query, pkValue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

// runGuaranteedChildren supplements the per-admission --children cap: for
// tables matching --guarantee-children, every child edge is topped up to
// guaranteedChildrenLimit total requested+required entries, independent of
// the ChildrenMax cap admission.CreateRowIn applied for the same row.
const guaranteedChildrenLimit = 8

func (s *Scheduler) runGuaranteedChildren(ctx context.Context, name string, tgt *target.Table, row *model.Row) error {
	if !selection.MatchesAny(s.GuaranteeChildren, tgt.Desc.Schema, tgt.Desc.Name) {
		return nil
	}

	for _, child := range tgt.Desc.ChildFKs {
		childTgt, ok := s.Deps.Targets[child.ConstrainedSchema+"."+child.ConstrainedTable]
		if !ok {
			continue
		}

		have := childTgt.RequiredLen() + childTgt.RequestedLen()
		if have >= guaranteedChildrenLimit {
			continue
		}
		need := guaranteedChildrenLimit - have

		values := make([]any, len(child.ReferredColumns))
		for i, c := range child.ReferredColumns {
			v, _ := row.Get(c)
			values[i] = v
		}

		rows, err := fetchChildRows(ctx, s.Deps.SourceDB, s.Deps.SourceDialect,
			child.ConstrainedSchema, child.ConstrainedTable, child.ConstrainedColumns, values, need)
		if err != nil {
			return fmt.Errorf("scheduler: guarantee-children fetch for %s: %w", childTgt.Desc.QualifiedName(), err)
		}

		for i, r := range rows {
			if i == 0 {
				childTgt.PushRequestedFront(r)
			} else {
				childTgt.PushRequestedBack(r)
			}
		}
		if len(rows) > 0 {
			s.Log.WithTable(name).Debugf("guarantee-children: topped up %s by %d row(s)", childTgt.Desc.QualifiedName(), len(rows))
		}
	}
	return nil
}

// fetchChildRows looks up up to limit rows in table matching columns=values
// by equality, skipping any column whose filter value is NULL.
func fetchChildRows(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string, columns []string, values []any, limit int) ([]*model.Row, error) {
	if limit <= 0 {
		return nil, nil
	}

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

	query := fmt.Sprintf("SELECT * FROM %s.%s WHERE %s LIMIT %d",
		d.QuoteIdentifier(schema), d.QuoteIdentifier(table), strings.Join(conds, " AND "), limit)

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
		r := model.NewRow()
		for i, c := range cols {
			r.Set(c, dest[i])
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// flushAll submits a batch insert for every target table with pending
// rows, falling back to per-row inserts (logging and skipping individual
// failures) if the batch fails outright.
func (s *Scheduler) flushAll(ctx context.Context) error {
	for name, tgt := range s.Deps.Targets {
		if len(tgt.Pending) == 0 {
			continue
		}
		pending := tgt.Flush()
		if err := s.flushTable(ctx, name, tgt, pending); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) flushTable(ctx context.Context, name string, tgt *target.Table, pending map[model.PKTuple]*model.Row) error {
	if err := s.batchInsert(ctx, tgt, pending); err == nil {
		return nil
	}

	s.Log.WithTable(name).Warnf("batch insert failed, falling back to per-row inserts")
	for _, row := range pending {
		// Flush already moved every pk from Pending to Done, so a failed
		// per-row insert here is a permanent skip, not a retry candidate.
		if err := s.insertOne(ctx, tgt, row); err != nil {
			s.Log.WithTable(name).Warnf("skipping row after insert failure: %v", err)
		}
	}
	return nil
}

func (s *Scheduler) batchInsert(ctx context.Context, tgt *target.Table, pending map[model.PKTuple]*model.Row) error {
	if len(pending) == 0 {
		return nil
	}

	d := s.Deps.DestDialect
	var cols []string
	for _, row := range pending {
		cols = row.Columns()
		break
	}
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = d.QuoteIdentifier(c)
	}

	var valueGroups []string
	var args []any
	for _, row := range pending {
		placeholders := make([]string, len(cols))
		for i, c := range cols {
			v, _ := row.Get(c)
			args = append(args, v)
			placeholders[i] = d.Placeholder(len(args))
		}
		valueGroups = append(valueGroups, "("+strings.Join(placeholders, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s",
		d.QuoteIdentifier(tgt.Desc.Schema), d.QuoteIdentifier(tgt.Desc.Name),
		strings.Join(quotedCols, ", "), strings.Join(valueGroups, ", "))

	_, err := s.Deps.DestDB.ExecContext(ctx, query, args...)
	return err
}

func (s *Scheduler) insertOne(ctx context.Context, tgt *target.Table, row *model.Row) error {
	d := s.Deps.DestDialect
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
		d.QuoteIdentifier(tgt.Desc.Schema), d.QuoteIdentifier(tgt.Desc.Name),
		strings.Join(quotedCols, ", "), strings.Join(placeholders, ", "))

	_, err := s.Deps.DestDB.ExecContext(ctx, query, args...)
	return err
}
